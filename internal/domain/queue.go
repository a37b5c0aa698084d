package domain

import (
	"strings"
	"time"
)

// Category is the purpose of an outbound email. Each category has its own
// daily sending cap, and all categories share one global daily cap.
type Category string

const (
	CategoryEvaluation  Category = "evaluation"
	CategoryCertificate Category = "certificate"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryEvaluation, CategoryCertificate:
		return true
	}
	return false
}

// Categories lists every recognized category in a stable order.
func Categories() []Category {
	return []Category{CategoryEvaluation, CategoryCertificate}
}

// Status tracks the lifecycle of a queue item.
//
// pending -> processing -> {sent | pending (retry) | failed}
//
// sent and failed are terminal. Terminal rows are never deleted; they are
// retained for audit and for the daily sent-count window.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// TemplateType selects which certificate template a certificate email uses.
type TemplateType string

const (
	TemplateParticipation TemplateType = "participation"
	TemplateAwardee       TemplateType = "awardee"
	TemplateAttendance    TemplateType = "attendance"
)

func (t TemplateType) IsValid() bool {
	switch t {
	case TemplateParticipation, TemplateAwardee, TemplateAttendance:
		return true
	}
	return false
}

// Label returns the human-facing certificate name used in subjects and bodies.
func (t TemplateType) Label() string {
	switch t {
	case TemplateAwardee:
		return "Award"
	case TemplateAttendance:
		return "Attendance"
	default:
		return "Participation"
	}
}

// Payload carries the category-specific data needed to render a message at
// send time. The queue itself treats it as opaque; only the composer reads it.
type Payload struct {
	ReferenceID  string       `json:"reference_id"`
	EventID      int64        `json:"event_id,omitempty"`
	TemplateType TemplateType `json:"template_type,omitempty"`
}

// QueueItem is one row of the persistent email queue.
//
// Email is a snapshot taken at enqueue time: a later change to the attendee's
// address does not affect an already-queued item.
type QueueItem struct {
	ID            int64      `json:"id"`
	AttendeeID    *int64     `json:"attendee_id,omitempty"`
	Email         string     `json:"email"`
	Category      Category   `json:"category"`
	Payload       Payload    `json:"payload"`
	Status        Status     `json:"status"`
	ScheduledDate time.Time  `json:"scheduled_date"`
	Priority      int        `json:"priority"`
	Attempt       int        `json:"attempt"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// EnqueueRequest is one email the caller wants sent. A batch of requests
// shares a single category (the admit call is per-category).
type EnqueueRequest struct {
	AttendeeID *int64  `json:"attendee_id,omitempty"`
	Email      string  `json:"email"`
	Payload    Payload `json:"payload"`
}

func (r *EnqueueRequest) Validate(category Category) error {
	if !category.IsValid() {
		return ErrInvalidCategory
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if r.Payload.ReferenceID == "" {
		return ErrInvalidPayload
	}
	if category == CategoryCertificate && !r.Payload.TemplateType.IsValid() {
		return ErrInvalidTemplateType
	}
	return nil
}

// EnqueueBatchRequest is the wire shape of a batch admission call.
type EnqueueBatchRequest struct {
	Emails []EnqueueRequest `json:"emails"`
}

// AdmitResult reports how an admitted batch was split between immediate
// delivery and deferred scheduling. Immediate is the number of sends the
// admission triggered; delivery claims oldest-first, so with older backlog
// eligible today the triggered sends may ship backlog items ahead of this
// batch's own. ScheduledDates holds the sorted distinct calendar days
// (YYYY-MM-DD) assigned to the deferred items.
type AdmitResult struct {
	Immediate      int      `json:"immediate"`
	Queued         int      `json:"queued"`
	ScheduledDates []string `json:"scheduled_dates"`
}

// DailyCounts holds how many emails were sent today, per category and total.
type DailyCounts struct {
	Evaluation  int `json:"evaluation"`
	Certificate int `json:"certificate"`
	Total       int `json:"total"`
}

// ByCategory returns the count for one category.
func (c DailyCounts) ByCategory(cat Category) int {
	switch cat {
	case CategoryEvaluation:
		return c.Evaluation
	case CategoryCertificate:
		return c.Certificate
	}
	return 0
}

// OutcomeStatus is the result classification of one worker step.
type OutcomeStatus string

const (
	OutcomeSent        OutcomeStatus = "sent"
	OutcomeRetry       OutcomeStatus = "retry"
	OutcomeFailed      OutcomeStatus = "failed"
	OutcomeRateLimited OutcomeStatus = "rate_limited"
	OutcomeIdle        OutcomeStatus = "idle"
	OutcomeError       OutcomeStatus = "error"
)

// Outcome is the report of a single delivery-worker step.
type Outcome struct {
	Status   OutcomeStatus `json:"status"`
	ItemID   int64         `json:"item_id,omitempty"`
	Category Category      `json:"category,omitempty"`
	Email    string        `json:"email,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// DrainSummary is the aggregate result of draining today's eligible queue.
// Failed counts only ceiling-exhausted items; an item requeued for retry is
// neither sent nor failed and shows up in Remaining.
type DrainSummary struct {
	Sent      int      `json:"sent"`
	Failed    int      `json:"failed"`
	Remaining int      `json:"remaining"`
	Errors    []string `json:"errors"`
}

// BudgetUsage is today's consumption against the global daily cap.
type BudgetUsage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// QueueStats is the on-demand backlog snapshot exposed to operators.
type QueueStats struct {
	Pending       int            `json:"pending"`
	PendingByDate map[string]int `json:"pending_by_date"`
	TodayLimit    BudgetUsage    `json:"today_limit"`
}

// Capacity answers "can N more emails of this category go out today".
type Capacity struct {
	CanSend   bool   `json:"can_send"`
	Available int    `json:"available"`
	Message   string `json:"message"`
}

// DateFormat is the wire format for calendar dates (scheduled_date and the
// pending-by-date stat keys).
const DateFormat = "2006-01-02"
