package chathub

import "chatsync/backend/internal/models"

// Client is one live connection owned by the hub.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string

	// Send queues an event for delivery without blocking. It reports false
	// when the connection is closed or its queue is full.
	Send(ev models.OutboundEvent) bool

	// Run starts the connection's read and write pumps.
	Run()
	// Close stops the connection. It is safe to call more than once.
	Close()
}
