// Package repository provides repository implementations for the
// Match History component.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dustforce-relay/internal/module/history/domain"
)

// cachedMatchLimit is how many of a lobby's most recent matches the
// Redis cache keeps.
const cachedMatchLimit = 20

// RedisRepository caches the most recent matches per lobby in a capped
// Redis list.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a Redis-backed match cache.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) key(lobbyID int) string {
	return fmt.Sprintf("match_history:%d", lobbyID)
}

// PushMatch prepends match to the lobby's cache list and trims it to
// cachedMatchLimit, most recent first.
func (r *RedisRepository) PushMatch(ctx context.Context, match domain.Match) error {
	payload, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	key := r.key(match.LobbyID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, cachedMatchLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache match: %w", err)
	}
	return nil
}

// GetRecent returns up to cachedMatchLimit cached matches for lobbyID,
// most recent first, or (nil, false) on a cache miss or error.
func (r *RedisRepository) GetRecent(ctx context.Context, lobbyID int, limit, offset int64) ([]domain.Match, bool) {
	if offset >= cachedMatchLimit {
		return nil, false
	}
	stop := offset + limit - 1
	if stop >= cachedMatchLimit {
		stop = cachedMatchLimit - 1
	}

	raw, err := r.client.LRange(ctx, r.key(lobbyID), offset, stop).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	matches := make([]domain.Match, 0, len(raw))
	for _, entry := range raw {
		var match domain.Match
		if err := json.Unmarshal([]byte(entry), &match); err != nil {
			return nil, false
		}
		matches = append(matches, match)
	}
	return matches, true
}
