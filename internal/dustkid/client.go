// Package dustkid implements the three upstream capability functions the
// core depends on: resolving a level id to a catalog filename, fetching a
// level's leaderboard stats, and resolving a user id to a display name.
// Each call is bounded by a short per-request timeout, distinct from the
// ingester's intentionally unbounded stream read.
package dustkid

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"dustforce-relay/internal/config"
	"dustforce-relay/internal/module/level"
	"dustforce-relay/internal/shared/logger"
)

const requestTimeout = 10 * time.Second

// Client talks to the Atlas/Dustkid/hitbox upstream HTTP APIs.
type Client struct {
	httpClient    *http.Client
	atlasURL      string
	levelStatsURL string
	userSearchURL string
	logger        *logger.Logger
}

// NewClient creates a new upstream capability client.
func NewClient(cfg config.DustkidConfig, l *logger.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: requestTimeout},
		atlasURL:      cfg.AtlasURL,
		levelStatsURL: cfg.LevelStatsURL,
		userSearchURL: cfg.UserSearchURL,
		logger:        l,
	}
}

// ResolveLevel performs an upstream catalog lookup for a numeric level id
// and returns its canonical atlas filename. The second return value is
// false ("none") if the id is unknown to the catalog.
func (c *Client) ResolveLevel(ctx context.Context, id int) (string, bool, error) {
	url := fmt.Sprintf("%s?id=%d", c.atlasURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("build resolve_level request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("resolve_level request: %w", err)
	}
	defer resp.Body.Close()

	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		return "", false, nil
	}

	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", false, nil
	}

	filename, ok := params["filename"]
	if !ok || filename == "" {
		return "", false, nil
	}
	return filename, true, nil
}

// levelStatsResponse is the upstream leaderboard JSON shape: a map keyed
// by user id, each value carrying the user's best run on this level.
type levelStatsResponse struct {
	Scores map[string]struct {
		ScoreCompletion int `json:"score_completion"`
		ScoreFinesse    int `json:"score_finesse"`
		Time            int `json:"time"`
	} `json:"scores"`
}

// FetchLevelStats retrieves the leaderboard for a level filename and
// reduces it to SS count and fastest SS time. A malformed payload is a
// recoverable parse error — the caller picks another level.
func (c *Client) FetchLevelStats(ctx context.Context, filename string) (*level.LevelStats, error) {
	url := c.levelStatsURL + filename
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch_level_stats request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch_level_stats request: %w", err)
	}
	defer resp.Body.Close()

	var payload levelStatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse_error: %w", err)
	}

	stats := &level.LevelStats{}
	fastest := -1
	for _, entry := range payload.Scores {
		if entry.ScoreCompletion != 5 || entry.ScoreFinesse != 5 {
			continue
		}
		stats.SSCount++
		if fastest == -1 || entry.Time < fastest {
			fastest = entry.Time
		}
	}
	if fastest >= 0 {
		d := time.Duration(fastest) * time.Millisecond
		stats.FastestSS = &d
	}
	return stats, nil
}

// userSearchEntry is one element of the upstream user-search JSON array.
type userSearchEntry struct {
	Name string `json:"name"`
}

// FetchUserName resolves a numeric user id to a display name. It returns
// ok=false if the id is out of range, the response isn't exactly one
// record, or the record lacks a name.
func (c *Client) FetchUserName(ctx context.Context, id int) (string, bool, error) {
	if id < 1 || id > 1_000_000 {
		return "", false, nil
	}

	url := fmt.Sprintf("%s?userid=%s", c.userSearchURL, strconv.Itoa(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("build fetch_user_name request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch_user_name request: %w", err)
	}
	defer resp.Body.Close()

	var entries []userSearchEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return "", false, nil
	}
	if len(entries) != 1 || entries[0].Name == "" {
		return "", false, nil
	}
	return entries[0].Name, true, nil
}
