package broker

import "encoding/json"

// inbound is the generic client->broker envelope: every message carries
// a discriminator "type" field plus whichever fields that type needs.
type inbound struct {
	Type     string `json:"type"`
	LobbyID  int    `json:"lobby_id"`
	Password string `json:"password"`
	LevelID  int    `json:"level_id"`
	Mode     string `json:"mode"`
	UserID   int    `json:"user_id"`
}

const (
	typeCreateLobby = "create_lobby"
	typeStartRound  = "start_round"
	typeJoin        = "join"
	typeLeave       = "leave"
	typeLogin       = "login"
	typeLogout      = "logout"
	typePing        = "ping"

	typeCreatedLobby = "created_lobby"
	typeError        = "error"
	typePong         = "pong"
)

// createdLobbyMessage is the created_lobby broker->client reply.
type createdLobbyMessage struct {
	Type     string `json:"type"`
	LobbyID  int    `json:"lobby_id"`
	Password string `json:"password"`
}

// errorMessage is the error broker->client reply. Today the only case
// that produces one is a lobby-capacity rejection.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// pongMessage answers a ping. The Gateway itself short-circuits most
// pings locally; this exists for completeness of the wire protocol and
// for server-originated pongs if ever needed.
type pongMessage struct {
	Type string `json:"type"`
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"error"}`)
	}
	return b
}
