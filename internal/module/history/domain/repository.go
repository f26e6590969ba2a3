package domain

import "context"

// Repository is the match history storage contract: write goes straight
// to Postgres (authoritative), read goes through a cache-aside Redis
// layer.
type Repository interface {
	RecordMatch(ctx context.Context, match Match) error
	GetHistory(ctx context.Context, lobbyID int, limit, offset int64) (*History, error)
}
