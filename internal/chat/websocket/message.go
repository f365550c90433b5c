package websocket

import "encoding/json"

type MessageType string

const (
	TypeAuth     MessageType = "auth"
	TypeAuthOK   MessageType = "auth_ok"
	TypeMessage  MessageType = "message"
	TypeError    MessageType = "error"
	TypeRevoked  MessageType = "revoked"
	TypeShutdown MessageType = "shutdown"
)

type WSMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type AuthPayload struct {
	Token string `json:"token"`
}

type ErrorPayload struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func encode(t MessageType, payload any) ([]byte, error) {
	msg := WSMessage{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
