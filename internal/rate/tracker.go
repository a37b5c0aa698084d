// Package rate computes how much of the daily sending budget is already
// spent. Counts are always derived fresh from the store rather than held in
// memory, so they survive restarts and stay correct across instances.
package rate

import (
	"context"
	"time"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/repository"
)

// Tracker answers "how many emails went out today" per category and in total.
// A sent item counts toward the day its last attempt actually happened, not
// the day it was scheduled for.
type Tracker struct {
	repo repository.QueueRepository
	loc  *time.Location
	now  func() time.Time
}

func NewTracker(repo repository.QueueRepository, loc *time.Location) *Tracker {
	return &Tracker{repo: repo, loc: loc, now: time.Now}
}

// WithNow overrides the clock. Test seam.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// CountSentToday counts items marked sent within [startOfToday,
// startOfTomorrow) in the reference timezone. Pure read; safe to call before
// every admission decision and every delivery attempt.
func (t *Tracker) CountSentToday(ctx context.Context) (domain.DailyCounts, error) {
	from := t.Today()
	to := from.AddDate(0, 0, 1)
	return t.repo.CountSentBetween(ctx, from, to)
}

// Today returns midnight of the current day in the reference timezone.
func (t *Tracker) Today() time.Time {
	return StartOfDay(t.now(), t.loc)
}

// StartOfDay truncates a moment to midnight of its calendar day in loc.
func StartOfDay(at time.Time, loc *time.Location) time.Time {
	y, m, d := at.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
