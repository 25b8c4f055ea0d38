// Package api provides HTTP API handlers for the matchpoint API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/matchpoint-app/matchpoint/internal/embedding"
	"github.com/matchpoint-app/matchpoint/internal/match"
	"github.com/matchpoint-app/matchpoint/internal/matchmaking"
	"github.com/matchpoint-app/matchpoint/internal/middleware"
	"github.com/matchpoint-app/matchpoint/internal/player"
	"github.com/matchpoint-app/matchpoint/internal/vectorindex"
)

// maxRequestBody bounds candidate request bodies.
const maxRequestBody = 1 << 20

// CandidateFinder runs one candidate search.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, req *match.Request) ([]match.Candidate, error)
}

// MatchHandlers serves the candidate search endpoint.
type MatchHandlers struct {
	pipeline CandidateFinder
	logger   *slog.Logger
}

// NewMatchHandlers creates handlers over the given pipeline.
func NewMatchHandlers(pipeline CandidateFinder, logger *slog.Logger) *MatchHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchHandlers{pipeline: pipeline, logger: logger}
}

// CandidatesResponse is the success body of POST /v1/matches/candidates.
type CandidatesResponse struct {
	MatchID    string            `json:"match_id"`
	Candidates []match.Candidate `json:"candidates"`
}

// Candidates handles POST /v1/matches/candidates: decodes a match request,
// runs the pipeline, and returns the ranked candidate list.
func (h *MatchHandlers) Candidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req match.Request
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	candidates, err := h.pipeline.FindCandidates(r.Context(), &req)
	if err != nil {
		h.writeSearchError(w, r, &req, err)
		return
	}

	response := CandidatesResponse{MatchID: req.MatchID, Candidates: candidates}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode candidates response",
			slog.String("match_id", req.MatchID),
			slog.String("error", err.Error()))
	}
}

// writeSearchError maps pipeline error kinds to HTTP responses.
func (h *MatchHandlers) writeSearchError(w http.ResponseWriter, r *http.Request, req *match.Request, err error) {
	var status int
	var code, message string

	switch {
	case errors.Is(err, match.ErrValidation):
		status, code, message = http.StatusBadRequest, ErrCodeValidation, err.Error()
	case errors.Is(err, matchmaking.ErrNoCandidates):
		status, code, message = http.StatusNotFound, ErrCodeNoCandidates, "No candidates found for this match"
	case errors.Is(err, embedding.ErrRateLimited):
		status, code, message = http.StatusTooManyRequests, ErrCodeRateLimited, "Embedding provider rate limited, retry later"
	case errors.Is(err, embedding.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, ErrCodeValidation, "Match request could not be embedded"
	case errors.Is(err, embedding.ErrUnavailable), errors.Is(err, embedding.ErrProvider):
		status, code, message = http.StatusBadGateway, ErrCodeUpstream, "Embedding provider unavailable"
	case errors.Is(err, vectorindex.ErrIndex):
		status, code, message = http.StatusBadGateway, ErrCodeUpstream, "Vector index unavailable"
	case errors.Is(err, player.ErrRepository):
		status, code, message = http.StatusBadGateway, ErrCodeUpstream, "Player store unavailable"
	default:
		status, code, message = http.StatusInternalServerError, ErrCodeInternal, "Internal server error"
	}

	if status >= 500 || status == http.StatusBadGateway {
		h.logger.Error("candidate search failed",
			slog.String("match_id", req.MatchID),
			slog.String("error", err.Error()))
	}

	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, status, code, message)
}
