package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventMediaUploaded EventType = "media.uploaded"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// MediaUploadedEvent notifies an owner's connected sessions about a new upload
type MediaUploadedEvent struct {
	MediaID    string   `json:"media_id"`
	Tags       []string `json:"tags"`
	UploadedAt string   `json:"uploaded_at"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
