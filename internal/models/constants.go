package models

const (
	OrderStatusSubmitted = "submitted"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultSessionTTL is how long an idle wizard session is kept, in seconds.
	DefaultSessionTTL = 24 * 60 * 60

	// DefaultWindowDays is the availability window length after today.
	DefaultWindowDays = 90

	// EarliestVehicleYear is the oldest year offered in the year dropdown.
	EarliestVehicleYear = 1995

	// CatalogCacheTTL is the Redis TTL for vehicle catalog lookups, in seconds.
	CatalogCacheTTL = 24 * 60 * 60

	// WorkerQueueSize is the in-memory queue size of the sheets worker.
	WorkerQueueSize = 128

	// RateLimitMessages is the number of chat messages allowed per window.
	RateLimitMessages = 20

	// RateLimitWindow is the chat rate limit window, in seconds.
	RateLimitWindow = 60

	// DefaultCountry is sent to the tax service with every address.
	DefaultCountry = "US"
)
