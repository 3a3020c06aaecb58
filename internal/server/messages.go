package server

import "encoding/json"

// Request is the client-to-server envelope. Op selects the handler; Data
// carries the op-specific payload.
type Request struct {
	Op        string          `json:"op"`
	RequestID string          `json:"request_id,omitempty"`
	Token     string          `json:"token,omitempty"`
	GameID    string          `json:"game_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Response is the server-to-client reply envelope. RequestID echoes the
// request so clients can correlate replies on a multiplexed connection.
type Response struct {
	Op        string `json:"op"`
	RequestID string `json:"request_id,omitempty"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Push is an unsolicited server-to-client frame carrying a game event.
type Push struct {
	Op     string `json:"op"` // always "event"
	GameID string `json:"game_id"`
	Event  string `json:"event"`
	Data   any    `json:"data,omitempty"`
}

type registerPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createGamePayload struct {
	Difficulty string `json:"difficulty"`
}

type drawPayload struct {
	Count int `json:"count"`
}

type selectCardsPayload struct {
	CardIDs []string `json:"card_ids"`
}

type cardPayload struct {
	CardID string `json:"card_id"`
}

type resetRequestPayload struct {
	Username string `json:"username"`
}

type resetPayload struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
