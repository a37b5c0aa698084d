// Package recipient gives the queue its narrow view of the attendees table:
// lookups for message rendering and the post-send flag updates. The table is
// owned by the event-management side of the application, not the queue.
package recipient

import (
	"context"
	"time"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
)

// Event is the slice of event data needed to render emails.
type Event struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Venue     string
}

// Attendee is the slice of attendee data needed to render emails and record
// send side effects.
type Attendee struct {
	ID             int64
	FirstName      string
	MiddleName     string
	LastName       string
	Email          string
	ReferenceID    string
	EvaluationSent bool
	EvaluationDone bool
	Event          Event
}

// Store defines the attendee operations the delivery worker consumes.
// Flag updates after a successful send are best-effort: the worker logs
// failures but never reverts a sent item because of them.
type Store interface {
	// GetByReference looks an attendee up by their public reference id.
	// Returns domain.ErrAttendeeNotFound when no such attendee exists.
	GetByReference(ctx context.Context, referenceID string) (*Attendee, error)

	// MarkEvaluationSent flips the attendee's evaluation-invited flag.
	MarkEvaluationSent(ctx context.Context, attendeeID int64) error

	// RecordCertificateSent appends a {type, sentAt, sentTo} entry to the
	// attendee's certificate delivery log.
	RecordCertificateSent(ctx context.Context, attendeeID int64, tpl domain.TemplateType, sentTo string, at time.Time) error
}
