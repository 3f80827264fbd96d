// Package streaming defines the WebSocket message protocol between the
// annotation server and connected browser sessions.
package streaming

import (
	"encoding/json"
)

// Message type constants matching the streaming protocol.
const (
	TypeVideoCreated     = "video_created"
	TypeContainerUpdated = "container_updated"
	TypeContainerDeleted = "container_deleted"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ContainerUpdatedPayload announces a saved container and its new size.
type ContainerUpdatedPayload struct {
	VideoID     string `json:"videoId"`
	ObjectCount int    `json:"objectCount"`
}

// ContainerDeletedPayload announces a removed video.
type ContainerDeletedPayload struct {
	VideoID string `json:"videoId"`
}

// NewEnvelope marshals a payload into an envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}
