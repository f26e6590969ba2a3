package lobby

import (
	"sort"
	"strconv"
	"time"
)

// Snapshot is the broker->client "state" message.
type Snapshot struct {
	Type        string            `json:"type"`
	LobbyID     int               `json:"lobby_id"`
	Level       *LevelView        `json:"level"`
	WarmupTimer *TimerView        `json:"warmup_timer"`
	BreakTimer  *TimerView        `json:"break_timer"`
	RoundTimer  *TimerView        `json:"round_timer"`
	Users       map[string]string `json:"users"`
	Scores      []ScoreView       `json:"scores"`
}

// LevelView is the client-facing projection of a level.Level.
type LevelView struct {
	Name    string  `json:"name"`
	Play    string  `json:"play"`
	Image   string  `json:"image"`
	Atlas   *string `json:"atlas"`
	Dustkid string  `json:"dustkid"`
}

// TimerView is an ISO-8601 start/end pair for an active deadline.
type TimerView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ScoreView is one row of the scores list.
type ScoreView struct {
	UserID     int    `json:"user_id"`
	UserName   string `json:"user_name"`
	Completion int    `json:"completion"`
	Finesse    int    `json:"finesse"`
	Time       int    `json:"time"`
}

// snapshot builds the current state message. It is called after every
// state-changing transition and every accepted score update.
func (l *Lobby) snapshot() Snapshot {
	snap := Snapshot{
		Type:    "state",
		LobbyID: l.ID,
		Users:   make(map[string]string, len(l.users)),
	}

	if l.level != nil {
		view := &LevelView{
			Name:    l.level.DisplayName,
			Play:    l.level.PlayURL,
			Image:   l.level.ImageURL,
			Dustkid: l.level.DustkidURL,
		}
		if l.level.ID != nil {
			atlas := l.level.AtlasURL
			view.Atlas = &atlas
		}
		snap.Level = view
	}

	snap.WarmupTimer = timerView(warmupStart(l), l.warmupEnd)
	snap.BreakTimer = timerView(breakStart(l), l.breakEnd)
	snap.RoundTimer = timerView(l.roundStart(), l.roundEnd)

	for id, u := range l.users {
		snap.Users[strconv.Itoa(id)] = u.Name
	}

	snap.Scores = l.scoreViews()
	return snap
}

// scoreViews lists, first, users in `remaining` who have scored (by
// ascending timestamp), then users in `remaining` who have not scored
// (zero rows).
func (l *Lobby) scoreViews() []ScoreView {
	remaining := l.remaining()

	var scored []ScoreView
	var unscored []int

	for _, id := range remaining {
		score, ok := l.scores[id]
		if !ok {
			unscored = append(unscored, id)
			continue
		}
		scored = append(scored, ScoreView{
			UserID:     id,
			UserName:   l.users[id].Name,
			Completion: score.Completion,
			Finesse:    score.Finesse,
			Time:       score.Time,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		ti := l.scores[scored[i].UserID].Timestamp
		tj := l.scores[scored[j].UserID].Timestamp
		return ti < tj
	})

	views := make([]ScoreView, 0, len(remaining))
	views = append(views, scored...)
	for _, id := range unscored {
		views = append(views, ScoreView{
			UserID:   id,
			UserName: l.users[id].Name,
		})
	}
	return views
}

func timerView(start *time.Time, end *time.Time) *TimerView {
	if start == nil || end == nil {
		return nil
	}
	return &TimerView{
		Start: start.UTC().Format(time.RFC3339),
		End:   end.UTC().Format(time.RFC3339),
	}
}

// warmupStart derives the warmup window's start from its end and the
// configured warmup duration.
func warmupStart(l *Lobby) *time.Time {
	if l.warmupEnd == nil {
		return nil
	}
	start := l.warmupEnd.Add(-l.warmupDuration)
	return &start
}

func breakStart(l *Lobby) *time.Time {
	if l.breakEnd == nil {
		return nil
	}
	start := l.breakEnd.Add(-l.breakDuration)
	return &start
}

// roundStart derives the round window's start from roundEnd and
// roundTime; it coincides with the break's end while a game runs.
func (l *Lobby) roundStart() *time.Time {
	if l.roundEnd == nil {
		return nil
	}
	start := l.roundEnd.Add(-l.roundTime)
	return &start
}
