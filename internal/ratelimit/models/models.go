package models

import "time"

// Operation classifies rate-limited activity. The original deployment ran a
// general window for verification operations and a stricter one for uploads.
type Operation string

const (
	OperationGeneral Operation = "general"
	OperationUpload  Operation = "upload"
)

// Result reports the outcome of one sliding-window check.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RetryAfter is the duration a denied caller should wait before retrying.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || r.ResetAt.Before(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Key builds the bucket key for a principal and operation.
func Key(userID string, op Operation) string {
	return "rl:" + string(op) + ":" + userID
}
