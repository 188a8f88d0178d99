package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewErrorMessage builds an "error" message for a single client.
func NewErrorMessage(msg string) []byte {
	b, _ := json.Marshal(Message{Action: "error", Payload: map[string]string{"message": msg}})
	return b
}

// NewPongMessage answers a client "ping".
func NewPongMessage() []byte {
	b, _ := json.Marshal(Message{Action: "pong"})
	return b
}
