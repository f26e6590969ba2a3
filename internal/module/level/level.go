// Package level models the Dustforce catalog entities the lobby engine
// plays rounds on: a Level derived from an atlas filename, and the
// aggregate LevelStats derived from its leaderboard.
package level

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Level is an immutable record derived from an atlas-catalog filename of
// the form "<slug>-<id>", or a stock-map slug carrying no id.
type Level struct {
	Filename    string
	ID          *int
	DisplayName string
	ImageURL    string
	PlayURL     string
	AtlasURL    string
	DustkidURL  string
}

// New derives a Level from its atlas filename. Stock maps (no numeric
// suffix) yield ID == nil and AtlasURL == "".
func New(filename string) Level {
	slug := filename
	var id *int

	if idx := strings.LastIndex(filename, "-"); idx >= 0 && idx < len(filename)-1 {
		suffix := filename[idx+1:]
		if n, err := strconv.Atoi(suffix); err == nil {
			parsed := n
			id = &parsed
			slug = filename[:idx]
		}
	}

	display := strings.ReplaceAll(slug, "-", " ")

	lvl := Level{
		Filename:    filename,
		ID:          id,
		DisplayName: display,
		ImageURL:    fmt.Sprintf("https://atlas.dustforce.com/gi/maps/%s.png", filename),
		DustkidURL:  fmt.Sprintf("https://dustkid.com/level/%s", filename),
	}
	if id != nil {
		lvl.PlayURL = fmt.Sprintf("dustforce://installPlay/%d/%s", *id, slug)
		lvl.AtlasURL = fmt.Sprintf("https://atlas.dustforce.com/%d/%s", *id, slug)
	} else {
		// Stock maps install by filename under the reserved id 0.
		lvl.PlayURL = fmt.Sprintf("dustforce://installPlay/0/%s", filename)
	}
	return lvl
}

// LevelStats aggregates the SS ("both ratings 5") runs on a level's
// leaderboard.
type LevelStats struct {
	SSCount   int
	FastestSS *time.Duration
}
