package audit

import (
	"encoding/json"
	"time"

	id "verigate/pkg/domain"
)

// Action is the closed set of auditable operations. Records with an unknown
// action are rejected at append time so the trail stays queryable.
type Action string

const (
	ActionCaseSubmitted    Action = "verification_submitted"
	ActionCaseApproved     Action = "verification_approved"
	ActionCaseRejected     Action = "verification_rejected"
	ActionDocumentUploaded Action = "document_uploaded"
	ActionStatusViewed     Action = "verification_status_viewed"
)

var knownActions = map[Action]struct{}{
	ActionCaseSubmitted:    {},
	ActionCaseApproved:     {},
	ActionCaseRejected:     {},
	ActionDocumentUploaded: {},
	ActionStatusViewed:     {},
}

// Valid reports whether the action belongs to the closed set.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// TargetType identifies what kind of entity a record describes.
type TargetType string

const (
	TargetCase     TargetType = "verification_case"
	TargetDocument TargetType = "document"
)

// Record is one immutable entry in the audit trail. Before and After hold
// JSON snapshots of the target around a state change; document records carry
// metadata only, never file content.
type Record struct {
	ID         string
	Timestamp  time.Time
	ActorID    id.UserID
	Action     Action
	TargetType TargetType
	TargetID   string
	Reason     string
	Before     json.RawMessage
	After      json.RawMessage
	IP         string
	UserAgent  string
	RequestID  string
}

// Snapshot marshals v for use as a Before or After value. A value that does
// not marshal becomes a null snapshot rather than failing the audit path.
func Snapshot(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}
