package config

import "time"

const (
	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Auto-generated session names
	MaxSessionNameLen   = 40
	FallbackSessionName = "Chat Session"

	// Learnings quoted in the system block
	LearningExcerptLen = 100

	// Realtime subscriber buffer
	SubscriberBuffer = 32

	// HTTP server timeouts
	ReadHeaderTimeout = 10 * time.Second
	ShutdownTimeout   = 15 * time.Second

	// Websocket keepalive
	WSPingInterval = 30 * time.Second
	WSWriteTimeout = 10 * time.Second

	// Backend health check
	HealthTimeout = 3 * time.Second

	// Telegram alert delivery
	AlertTimeout = 10 * time.Second

	// Sessions per page in the bot
	SessionsPerPage = 5

	// Rate limiter burst per client
	RateLimitBurst = 10
)

// TemperatureOptions offered by the bot keyboard.
var TemperatureOptions = []float64{0.1, 0.4, 0.7, 1.0, 1.5, 2.0}
