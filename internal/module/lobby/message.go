package lobby

import (
	"time"

	"dustforce-relay/internal/module/event"
)

// MessageType discriminates the tagged union a Runner's inbox carries:
// join, leave, login, logout, start_round, dustkid_event, close.
type MessageType int

const (
	MsgJoin MessageType = iota
	MsgLeave
	MsgLogin
	MsgLogout
	MsgStartRound
	MsgEvent
	MsgClose
)

// StartRoundParams carries the fields of an on_start_round request. The
// WebSocket client protocol never sets Warmup/Break/Round; they exist so
// the Admin API's start_round form (which carries
// warmup_seconds/break_seconds/round_seconds) can override this one
// game's phase durations without changing the lobby's configured
// defaults for later games.
type StartRoundParams struct {
	Password string
	LevelID  int
	Mode     Mode

	Warmup *time.Duration
	Break  *time.Duration
	Round  *time.Duration
}

// Message is one inbox entry. Only the fields relevant to Type are set.
type Message struct {
	Type       MessageType
	Identity   string
	UserID     int
	StartRound StartRoundParams
	Event      event.Event

	// Reply, if non-nil, receives exactly one Outcome for request/response
	// messages (join, start_round) that the Broker needs to answer
	// immediately rather than via the next snapshot.
	Reply chan<- Outcome
}

// Outcome is the synchronous result of a request/response message.
type Outcome struct {
	Accepted bool
	Reason   string
}
