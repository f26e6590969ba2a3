// Package event models a single parsed record from the upstream Dustkid
// event stream, and the Score it carries once credited to a round.
package event

import "encoding/json"

// Event is a parsed upstream record. The core only requires the six
// typed fields below; every other field in the source record is kept
// opaque so Event round-trips losslessly through parse -> use.
type Event struct {
	User            int             `json:"user"`
	Level           string          `json:"level"`
	Time            int             `json:"time"`
	ScoreCompletion int             `json:"score_completion"`
	ScoreFinesse    int             `json:"score_finesse"`
	Timestamp       int64           `json:"timestamp"`
	raw             json.RawMessage // the original record bytes, for republishing verbatim
}

// Parse decodes one upstream record. Required fields missing from the
// JSON simply zero-value; the caller is responsible for validating them
// against lobby state (spec places no parse-time schema requirement
// beyond "valid JSON").
func Parse(record []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(record, &e); err != nil {
		return Event{}, err
	}
	e.raw = append(json.RawMessage(nil), record...)
	return e, nil
}

// Raw returns the original record bytes as received from upstream, for
// lossless republishing on the internal bus.
func (e Event) Raw() []byte {
	return e.raw
}

// Score is a user's best qualifying attempt within one round. Total
// ordered by (completion+finesse, -time, -timestamp) -- higher is
// better -- and only ever compared within a single round.
type Score struct {
	Completion int
	Finesse    int
	Time       int
	Timestamp  int64
}

// FromEvent builds a Score from an accepted Event.
func FromEvent(e Event) Score {
	return Score{
		Completion: e.ScoreCompletion,
		Finesse:    e.ScoreFinesse,
		Time:       e.Time,
		Timestamp:  e.Timestamp,
	}
}

// key returns the ordering tuple: higher total rating wins ties broken by
// lower time then, failing that, lower timestamp -- so negating time and
// timestamp keeps "greater tuple wins" as the single comparison rule.
func (s Score) key() (int, int, int64) {
	return s.Completion + s.Finesse, -s.Time, -s.Timestamp
}

// Better reports whether s strictly outranks other by the Score ordering.
func (s Score) Better(other Score) bool {
	aRating, aTime, aTimestamp := s.key()
	bRating, bTime, bTimestamp := other.key()

	if aRating != bRating {
		return aRating > bRating
	}
	if aTime != bTime {
		return aTime > bTime
	}
	return aTimestamp > bTimestamp
}
