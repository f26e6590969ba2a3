package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dustforce-relay/internal/module/history/domain"
)

// PostgresRepository is the authoritative store for completed matches.
// Participants are kept as a single JSONB column: Match History is
// write-once, read-by-lobby, and never joined against other tables, so
// a normalized participants table would buy nothing.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres-backed match store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// RecordMatch inserts one completed match.
func (r *PostgresRepository) RecordMatch(ctx context.Context, match domain.Match) error {
	participants, err := json.Marshal(match.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO match_history (lobby_id, level_filename, winner_user_id, participants, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, match.LobbyID, match.LevelFilename, match.WinnerUserID, participants, match.StartedAt, match.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// GetHistory returns a lobby's matches, most recent first.
func (r *PostgresRepository) GetHistory(ctx context.Context, lobbyID int, limit, offset int64) (*domain.History, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT level_filename, winner_user_id, participants, started_at, finished_at
		FROM match_history
		WHERE lobby_id = $1
		ORDER BY finished_at DESC
		LIMIT $2 OFFSET $3
	`, lobbyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query match history: %w", err)
	}
	defer rows.Close()

	matches, err := scanMatches(rows, lobbyID)
	if err != nil {
		return nil, err
	}

	total, err := r.countMatches(ctx, lobbyID)
	if err != nil {
		return nil, err
	}

	return &domain.History{LobbyID: lobbyID, Matches: matches, Total: total}, nil
}

// countMatches returns how many matches a lobby has accumulated.
func (r *PostgresRepository) countMatches(ctx context.Context, lobbyID int) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM match_history WHERE lobby_id = $1`, lobbyID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count match history: %w", err)
	}
	return total, nil
}

// rowScanner is the subset of pgx.Rows scanMatches needs.
type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanMatches(rows rowScanner, lobbyID int) ([]domain.Match, error) {
	var matches []domain.Match
	for rows.Next() {
		var match domain.Match
		var participants []byte
		match.LobbyID = lobbyID

		if err := rows.Scan(&match.LevelFilename, &match.WinnerUserID, &participants, &match.StartedAt, &match.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if err := json.Unmarshal(participants, &match.Participants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match history: %w", err)
	}
	return matches, nil
}
