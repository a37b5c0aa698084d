package recipient

import (
	"context"
	"sync"
	"time"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
)

// CertificateRecord is one entry of the mock's certificate delivery log.
type CertificateRecord struct {
	TemplateType domain.TemplateType
	SentTo       string
	SentAt       time.Time
}

// MockStore is an in-memory Store for unit tests.
type MockStore struct {
	mu        sync.Mutex
	attendees map[string]*Attendee // keyed by reference id

	EvaluationSentIDs  []int64
	CertificateRecords map[int64][]CertificateRecord

	// Optional error overrides.
	GetErr      error
	MarkFlagErr error
}

func NewMockStore() *MockStore {
	return &MockStore{
		attendees:          make(map[string]*Attendee),
		CertificateRecords: make(map[int64][]CertificateRecord),
	}
}

// Add registers an attendee under its reference id.
func (m *MockStore) Add(att *Attendee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendees[att.ReferenceID] = att
}

func (m *MockStore) GetByReference(_ context.Context, referenceID string) (*Attendee, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	att, ok := m.attendees[referenceID]
	if !ok {
		return nil, domain.ErrAttendeeNotFound
	}
	clone := *att
	return &clone, nil
}

func (m *MockStore) MarkEvaluationSent(_ context.Context, attendeeID int64) error {
	if m.MarkFlagErr != nil {
		return m.MarkFlagErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EvaluationSentIDs = append(m.EvaluationSentIDs, attendeeID)
	for _, att := range m.attendees {
		if att.ID == attendeeID {
			att.EvaluationSent = true
		}
	}
	return nil
}

func (m *MockStore) RecordCertificateSent(_ context.Context, attendeeID int64, tpl domain.TemplateType, sentTo string, at time.Time) error {
	if m.MarkFlagErr != nil {
		return m.MarkFlagErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CertificateRecords[attendeeID] = append(m.CertificateRecords[attendeeID], CertificateRecord{
		TemplateType: tpl,
		SentTo:       sentTo,
		SentAt:       at,
	})
	return nil
}
