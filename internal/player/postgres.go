package player

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/matchpoint-app/matchpoint/internal/availability"
	"github.com/matchpoint-app/matchpoint/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

const playerColumns = `
	id, name, elo, age, gender, category, positions,
	lat, lon, zone, availability, acceptance_rate, last_active_days
`

// GetByIDs retrieves the players matching the given IDs, skipping unknowns.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []string) ([]*Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "players", tracing.DBOperationQuery)
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		err = fmt.Errorf("%w: query players: %v", ErrRepository, err)
		endSpan(err)
		return nil, err
	}
	defer rows.Close()

	players, err := r.scanPlayers(rows)
	endSpan(err)
	return players, err
}

// List retrieves all players ordered by ID.
func (r *PostgresRepository) List(ctx context.Context) ([]*Player, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "players", tracing.DBOperationQuery)
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err = fmt.Errorf("%w: query players: %v", ErrRepository, err)
		endSpan(err)
		return nil, err
	}
	defer rows.Close()

	players, err := r.scanPlayers(rows)
	endSpan(err)
	return players, err
}

func (r *PostgresRepository) scanPlayers(rows *sql.Rows) ([]*Player, error) {
	var players []*Player
	for rows.Next() {
		p, err := r.scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate players: %v", ErrRepository, err)
	}
	return players, nil
}

func (r *PostgresRepository) scanPlayer(rows *sql.Rows) (*Player, error) {
	var (
		p         Player
		positions pq.StringArray
		lat, lon  sql.NullFloat64
		zone      sql.NullString
		availRaw  []byte
	)

	err := rows.Scan(
		&p.ID, &p.Name, &p.Elo, &p.Age, &p.Gender, &p.Category, &positions,
		&lat, &lon, &zone, &availRaw, &p.AcceptanceRate, &p.LastActiveDays,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: scan player: %v", ErrRepository, err)
	}

	p.Positions = make([]Position, 0, len(positions))
	for _, pos := range positions {
		p.Positions = append(p.Positions, Position(pos))
	}

	if lat.Valid && lon.Valid {
		p.Location = &Location{Lat: lat.Float64, Lon: lon.Float64, Zone: zone.String}
	}

	if len(availRaw) > 0 {
		var slots []availability.Slot
		if err := json.Unmarshal(availRaw, &slots); err != nil {
			// Corrupt availability degrades to no slots.
			r.logger.Warn("failed to parse availability",
				slog.String("player_id", p.ID),
				slog.String("error", err.Error()))
		} else {
			p.Availability = slots
		}
	}

	return &p, nil
}
