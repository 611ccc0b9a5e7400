package models

const (
	StatusConfirmed = "confirmed"
)

// DateLayout is the canonical on-disk and on-wire date format.
const DateLayout = "2006-01-02"

const (
	// SubmitRateLimit is the default number of booking submissions allowed
	// per client within SubmitRateWindow seconds.
	SubmitRateLimit  = 5
	SubmitRateWindow = 60

	// WorkerQueueSize is the in-memory fallback queue size of the sheets worker.
	WorkerQueueSize = 128

	// SessionTTLHours is how long an admin session cookie stays valid.
	SessionTTLHours = 12
)
