package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
//
// Claim ordering matches the pg implementation: scheduled_date, priority, id.
type MockQueueRepository struct {
	mu     sync.Mutex
	items  map[int64]*domain.QueueItem
	nextID int64

	// Optional error overrides — set in tests to simulate failure paths.
	InsertErr    error
	ClaimErr     error
	CountSentErr error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{
		items:  make(map[int64]*domain.QueueItem),
		nextID: 1,
	}
}

func (m *MockQueueRepository) Insert(_ context.Context, items []*domain.QueueItem) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		item.ID = m.nextID
		m.nextID++
		clone := *item
		m.items[item.ID] = &clone
	}
	return nil
}

func (m *MockQueueRepository) GetByID(_ context.Context, id int64) (*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *MockQueueRepository) ClaimNext(
	_ context.Context,
	today time.Time,
	attemptCeiling int,
	categories []domain.Category,
	exclude []int64,
) (*domain.QueueItem, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}
	excluded := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var eligible []*domain.QueueItem
	for _, item := range m.items {
		if item.Status != domain.StatusPending {
			continue
		}
		if item.ScheduledDate.After(today) {
			continue
		}
		if item.Attempt >= attemptCeiling {
			continue
		}
		if !allowed[item.Category] || excluded[item.ID] {
			continue
		}
		eligible = append(eligible, item)
	}
	if len(eligible) == 0 {
		return nil, domain.ErrNotFound
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.Before(b.ScheduledDate)
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	claimed := eligible[0]
	now := time.Now().UTC()
	claimed.Status = domain.StatusProcessing
	claimed.LastAttemptAt = &now

	clone := *claimed
	return &clone, nil
}

func (m *MockQueueRepository) MarkSent(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusSent
		item.LastAttemptAt = &at
	}
	return nil
}

func (m *MockQueueRepository) Requeue(_ context.Context, id int64, attempt int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusPending
		item.Attempt = attempt
		item.LastAttemptAt = &at
	}
	return nil
}

func (m *MockQueueRepository) MarkFailed(_ context.Context, id int64, attempt int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusFailed
		item.Attempt = attempt
		item.LastAttemptAt = &at
	}
	return nil
}

func (m *MockQueueRepository) CountSentBetween(_ context.Context, from, to time.Time) (domain.DailyCounts, error) {
	if m.CountSentErr != nil {
		return domain.DailyCounts{}, m.CountSentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var counts domain.DailyCounts
	for _, item := range m.items {
		if item.Status != domain.StatusSent || item.LastAttemptAt == nil {
			continue
		}
		at := *item.LastAttemptAt
		if at.Before(from) || !at.Before(to) {
			continue
		}
		switch item.Category {
		case domain.CategoryEvaluation:
			counts.Evaluation++
		case domain.CategoryCertificate:
			counts.Certificate++
		}
		counts.Total++
	}
	return counts, nil
}

func (m *MockQueueRepository) CountPendingEligible(_ context.Context, today time.Time, attemptCeiling int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.items {
		if item.Status == domain.StatusPending && !item.ScheduledDate.After(today) && item.Attempt < attemptCeiling {
			n++
		}
	}
	return n, nil
}

func (m *MockQueueRepository) PendingByDate(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDate := make(map[string]int)
	for _, item := range m.items {
		if item.Status == domain.StatusPending {
			byDate[item.ScheduledDate.Format(domain.DateFormat)]++
		}
	}
	return byDate, nil
}

// All returns a snapshot of every stored item, ordered by id. Test helper.
func (m *MockQueueRepository) All() []*domain.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		clone := *item
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
