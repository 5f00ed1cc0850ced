package events

import (
	"time"

	"github.com/picstash/media-service/internal/types"
)

// Publisher interface for publishing events
type Publisher interface {
	PublishMediaUploaded(ownerID, mediaID string, tags []string) error
}

// WebSocketHub interface for the WebSocket hub
type WebSocketHub interface {
	BroadcastToUser(userID string, event *types.Event)
	IsUserConnected(userID string) bool
}

// EventPublisher implements the Publisher interface
type EventPublisher struct {
	hub WebSocketHub
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishMediaUploaded notifies the owner's other connected sessions that a
// new image finished uploading.
func (p *EventPublisher) PublishMediaUploaded(ownerID, mediaID string, tags []string) error {
	// Only send if the owner has a live connection
	if !p.hub.IsUserConnected(ownerID) {
		return nil
	}

	eventData := &types.MediaUploadedEvent{
		MediaID:    mediaID,
		Tags:       tags,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}

	event := types.NewEvent(types.EventMediaUploaded, eventData)
	p.hub.BroadcastToUser(ownerID, event)

	return nil
}
