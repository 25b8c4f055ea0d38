package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubChecker fails or succeeds on demand.
type stubChecker struct {
	err error
}

func (s *stubChecker) HealthCheck(context.Context) error {
	return s.err
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

// TestHealthLiveness tests that liveness always succeeds.
func TestHealthLiveness(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "healthy" || resp.Checks["runtime"] != "ok" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

// TestReadyAllHealthy tests readiness with working dependencies.
func TestReadyAllHealthy(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{
		DBChecker:    &stubChecker{},
		RedisChecker: &stubChecker{},
	})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Checks["database"] != "ok" || resp.Checks["redis"] != "ok" {
		t.Errorf("unexpected checks: %+v", resp.Checks)
	}
}

// TestReadyDatabaseDown tests 503 on a failing dependency.
func TestReadyDatabaseDown(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{
		DBChecker: &stubChecker{err: errors.New("connection refused")},
	})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "unhealthy" || resp.Checks["database"] != "error" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

// TestReadyUnconfiguredCheckers tests that nil checkers pass.
func TestReadyUnconfiguredCheckers(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
