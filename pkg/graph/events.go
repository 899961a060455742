package graph

import "github.com/inboxgraph/backend/pkg/common"

// Event types emitted by a pipeline run.
const (
	EventEmails       = "emails"
	EventRelationship = "relationship"
	EventError        = "error"
)

// Event is a single progress update from a pipeline run. Exactly one of
// Emails, Relationship, or Error is set, matching Type.
type Event struct {
	Type         string
	Emails       *EmailsProgress
	Relationship *RelationshipProgress
	Error        *ErrorData
}

// EmailsProgress reports ingest progress after each normalized batch.
type EmailsProgress struct {
	Processed   int                      `json:"processed"`
	Total       int                      `json:"total"`
	LatestBatch []common.NormalizedEmail `json:"latestBatch"`
}

// RelationshipProgress reports pairwise analysis progress. Processed counts
// enumerated pairs including skipped ones; Latest is nil for skipped pairs.
type RelationshipProgress struct {
	Processed int                  `json:"processed"`
	Total     int                  `json:"total"`
	Latest    *common.Relationship `json:"latest,omitempty"`
}

// ErrorData carries the message of a terminal pipeline failure.
type ErrorData struct {
	Message string `json:"message"`
}

// Data returns the event's payload for serialization.
func (e Event) Data() any {
	switch e.Type {
	case EventEmails:
		return e.Emails
	case EventRelationship:
		return e.Relationship
	case EventError:
		return e.Error
	}
	return nil
}
