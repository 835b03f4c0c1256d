package config

import "time"

const (
	// Websocket keep-alive.
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10

	// Upper bound for a single inbound frame.
	MaxMessageSize = 64 * 1024

	// Outbound queue per connection. A connection whose queue fills up is dropped.
	SendBufferSize = 256

	// Budget for the best-effort lastSeen write after a disconnect.
	LastSeenWriteTimeout = 5 * time.Second

	// Budget for one Redis relay publish before falling back to local delivery.
	RelayPublishTimeout = 2 * time.Second
)

// Broadcast modes for HubConfig.Broadcast.
const (
	BroadcastLocal = "local"
	BroadcastRedis = "redis"
)
