package lobby

import (
	"math/rand"
	"time"

	"dustforce-relay/internal/module/level"
)

// MaxLevelIDSource is supplied by the Broker: the running maximum level
// id ever observed on the event stream, used to bound random level
// draws for rotating lobbies.
type MaxLevelIDSource func() int

// tryRotate draws a fresh random level for a KindRotating lobby once its
// current game has ended (or it never started one). It never blocks the
// runner's inbox: a failed draw simply logs at warn and waits for the
// next tick.
func (r *runner) tryRotate() {
	if r.lobby.Kind != KindRotating || r.lobby.state != Idle {
		return
	}
	if r.deps.MaxLevelID == nil || r.deps.Levels == nil {
		return
	}

	maxID := r.deps.MaxLevelID()
	if maxID < 100 {
		return
	}

	for attempt := 0; attempt < r.cfg.MaxDrawAttempts; attempt++ {
		candidate := 100 + rand.Intn(maxID-100+1)

		filename, ok, err := r.deps.Levels.ResolveLevel(r.ctx, candidate)
		if err != nil || !ok {
			continue
		}

		stats, err := r.deps.Levels.FetchLevelStats(r.ctx, filename)
		if err != nil {
			continue
		}
		if stats.SSCount < r.cfg.MinSSCount {
			continue
		}
		if stats.FastestSS != nil && *stats.FastestSS > r.cfg.MaxFastestSS {
			continue
		}

		lvl := level.New(filename)
		r.lobby.level = &lvl
		r.lobby.mode = ModeAny
		r.lobby.allowJoining = false
		r.startedAt = time.Now()
		r.enterWarmup()
		return
	}

	if r.deps.Logger != nil {
		r.deps.Logger.Warnf(r.ctx, "rotating lobby %d: exhausted %d draw attempts, level=none", r.lobby.ID, r.cfg.MaxDrawAttempts)
	}
}
