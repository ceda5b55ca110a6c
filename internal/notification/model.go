package notification

import (
	"encoding/json"
	"time"
)

// Failure kinds recorded for notifications that did not verify.
const (
	KindValidation       = "validation"
	KindInvalidSignature = "invalid_signature"
	KindRequestFailed    = "request_failed"
	KindListener         = "listener"
)

// Notification is one received status push, as stored for audit.
type Notification struct {
	ID           int64
	PosID        string
	SessionID    string
	Ts           string
	Payload      json.RawMessage
	Attempts     int
	ReceivedAt   time.Time
	ProcessedAt  *time.Time
	FailureKind  *string
	ProcessError *string
}
