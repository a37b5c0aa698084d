package repository

import (
	"context"
	"time"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
)

// QueueRepository defines all persistence operations for the email queue.
// The pgx implementation is in pg_queue_repo.go.
// Tests use a hand-written in-memory mock (mock_queue_repo.go).
type QueueRepository interface {
	// Insert persists a batch of new queue items atomically: either every row
	// is written or none is. IDs are assigned by the store and written back
	// into the given items.
	Insert(ctx context.Context, items []*domain.QueueItem) error

	GetByID(ctx context.Context, id int64) (*domain.QueueItem, error)

	// ClaimNext atomically selects the oldest eligible pending item and marks
	// it processing with last_attempt_at set, in a single conditional update.
	// Eligible means: status=pending, scheduled_date <= today, attempt below
	// the ceiling, category in categories, and id not in exclude.
	// Ordering: scheduled_date, then priority, then id.
	// Returns domain.ErrNotFound when no item is eligible.
	ClaimNext(ctx context.Context, today time.Time, attemptCeiling int, categories []domain.Category, exclude []int64) (*domain.QueueItem, error)

	// MarkSent resolves a processing item to sent.
	MarkSent(ctx context.Context, id int64, at time.Time) error

	// Requeue returns a processing item to pending with the new attempt count,
	// keeping its scheduled_date so it competes alongside today's queue.
	Requeue(ctx context.Context, id int64, attempt int, at time.Time) error

	// MarkFailed resolves a processing item to terminally failed.
	MarkFailed(ctx context.Context, id int64, attempt int, at time.Time) error

	// CountSentBetween counts sent items whose last_attempt_at falls in
	// [from, to), grouped by category. Zero counts are not an error.
	CountSentBetween(ctx context.Context, from, to time.Time) (domain.DailyCounts, error)

	// CountPendingEligible counts pending items deliverable today.
	CountPendingEligible(ctx context.Context, today time.Time, attemptCeiling int) (int, error)

	// PendingByDate returns the pending backlog grouped by scheduled date,
	// keyed by YYYY-MM-DD.
	PendingByDate(ctx context.Context) (map[string]int, error)
}
