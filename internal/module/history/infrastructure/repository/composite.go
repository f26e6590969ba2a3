package repository

import (
	"context"

	"dustforce-relay/internal/module/history/domain"
)

// CompositeRepository combines Redis and PostgreSQL: PostgreSQL is
// authoritative and is always written to; Redis caches the page a read
// most commonly needs (the most recent cachedMatchLimit matches) and is
// consulted first, falling back to PostgreSQL on a miss or once a
// request reaches past the cached window.
type CompositeRepository struct {
	redisRepo    *RedisRepository
	postgresRepo *PostgresRepository
}

// NewCompositeRepository creates a new composite match repository.
func NewCompositeRepository(redisRepo *RedisRepository, postgresRepo *PostgresRepository) *CompositeRepository {
	return &CompositeRepository{redisRepo: redisRepo, postgresRepo: postgresRepo}
}

// RecordMatch writes match to PostgreSQL first; the cache is only ever
// a read accelerator, so a cache-push failure is deliberately ignored
// rather than failing the whole write — the next read simply falls back
// to PostgreSQL.
func (r *CompositeRepository) RecordMatch(ctx context.Context, match domain.Match) error {
	if err := r.postgresRepo.RecordMatch(ctx, match); err != nil {
		return err
	}
	_ = r.redisRepo.PushMatch(ctx, match)
	return nil
}

// GetHistory serves from the Redis cache when the request fits
// entirely within the cached window, falling back to PostgreSQL
// (which also supplies the authoritative total count) otherwise.
func (r *CompositeRepository) GetHistory(ctx context.Context, lobbyID int, limit, offset int64) (*domain.History, error) {
	if matches, ok := r.redisRepo.GetRecent(ctx, lobbyID, limit, offset); ok && int64(len(matches)) == limit {
		total, err := r.postgresRepo.countMatches(ctx, lobbyID)
		if err != nil {
			return nil, err
		}
		return &domain.History{LobbyID: lobbyID, Matches: matches, Total: total}, nil
	}

	return r.postgresRepo.GetHistory(ctx, lobbyID, limit, offset)
}
