package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/josephbaria24/petros-event-management-system/internal/config"
	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/mailer"
	"github.com/josephbaria24/petros-event-management-system/internal/rate"
	"github.com/josephbaria24/petros-event-management-system/internal/recipient"
	"github.com/josephbaria24/petros-event-management-system/internal/render"
	"github.com/josephbaria24/petros-event-management-system/internal/repository"
	"github.com/josephbaria24/petros-event-management-system/internal/scheduler"
	"github.com/josephbaria24/petros-event-management-system/internal/worker"
)

type fakeMailer struct {
	mu      sync.Mutex
	failFor map[string]error
	sent    []string
}

func (m *fakeMailer) Send(_ context.Context, msg *mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg.To)
	return nil
}

type fakeCertRenderer struct{}

func (fakeCertRenderer) Render(_ context.Context, _ *recipient.Attendee, _ domain.TemplateType) ([]byte, error) {
	return []byte("pdf"), nil
}

type fixture struct {
	svc    *QueueService
	repo   *repository.MockQueueRepository
	store  *recipient.MockStore
	mailer *fakeMailer
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, loc)

	repo := repository.NewMockQueueRepository()
	store := recipient.NewMockStore()
	fm := &fakeMailer{failFor: map[string]error{}}

	composer, err := render.NewComposer(store, fakeCertRenderer{}, render.Options{
		FromName:    "Petrosphere Events",
		FromAddress: "events@petros-global.com",
		SiteURL:     "https://events.petros-global.com",
	})
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}

	cfg := &config.Config{
		Caps:         config.Caps{Evaluation: 40, Certificate: 80, Total: 100},
		RetryCeiling: 3,
		SendInterval: time.Millisecond,
		SendTimeout:  time.Second,
		DrainTimeout: time.Minute,
		Location:     loc,
	}

	logger := zap.NewNop()
	tracker := rate.NewTracker(repo, loc).WithNow(func() time.Time { return now })
	admission := scheduler.NewAdmission(repo, tracker, cfg.Caps, logger)
	deliverer := worker.NewDeliverer(repo, tracker, composer, fm, store, cfg, worker.Hooks{}, logger).
		WithNow(func() time.Time { return now })
	processor := worker.NewProcessor(deliverer, repo, tracker, cfg.RetryCeiling, cfg.SendInterval, logger)
	svc := NewQueueService(admission, deliverer, processor, repo, tracker, cfg, nil, logger)

	return &fixture{svc: svc, repo: repo, store: store, mailer: fm, now: now}
}

func (f *fixture) requests(t *testing.T, n int, withTemplate bool) []domain.EnqueueRequest {
	t.Helper()
	reqs := make([]domain.EnqueueRequest, n)
	for i := range reqs {
		attendeeID := int64(2000 + i)
		ref := fmt.Sprintf("REF-%03d", i)
		email := fmt.Sprintf("attendee%d@example.com", i)

		f.store.Add(&recipient.Attendee{
			ID:          attendeeID,
			FirstName:   "test",
			LastName:    fmt.Sprintf("attendee %d", i),
			Email:       email,
			ReferenceID: ref,
			Event:       recipient.Event{ID: 5, Name: "Incident Command Workshop"},
		})

		reqs[i] = domain.EnqueueRequest{
			AttendeeID: &attendeeID,
			Email:      email,
			Payload:    domain.Payload{ReferenceID: ref, EventID: 5},
		}
		if withTemplate {
			reqs[i].Payload.TemplateType = domain.TemplateParticipation
		}
	}
	return reqs
}

func TestEnqueueBatch_DeliversImmediatePortion(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.EnqueueBatch(context.Background(),
		domain.CategoryEvaluation, f.requests(t, 5, false))
	if err != nil {
		t.Fatalf("EnqueueBatch: %v", err)
	}
	if result.Immediate != 5 || result.Queued != 0 {
		t.Errorf("result = %+v, want 5 immediate", result)
	}
	if len(f.mailer.sent) != 5 {
		t.Errorf("sent %d emails, want 5", len(f.mailer.sent))
	}

	// Immediate sends show up in today's budget.
	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TodayLimit.Used != 5 {
		t.Errorf("used = %d, want 5", stats.TodayLimit.Used)
	}
	if stats.Pending != 0 {
		t.Errorf("pending = %d, want 0", stats.Pending)
	}
}

func TestEnqueueBatch_OverflowStaysQueued(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.EnqueueBatch(context.Background(),
		domain.CategoryEvaluation, f.requests(t, 45, false))
	if err != nil {
		t.Fatalf("EnqueueBatch: %v", err)
	}
	if result.Immediate != 40 || result.Queued != 5 {
		t.Errorf("result = %+v, want 40/5 split", result)
	}
	if len(f.mailer.sent) != 40 {
		t.Errorf("sent %d, want 40", len(f.mailer.sent))
	}

	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 5 {
		t.Errorf("pending = %d, want 5 deferred", stats.Pending)
	}
	tomorrow := f.now.AddDate(0, 0, 1).Format(domain.DateFormat)
	if stats.PendingByDate[tomorrow] != 5 {
		t.Errorf("pending by date = %v, want 5 on %s", stats.PendingByDate, tomorrow)
	}
}

func TestEnqueueBatch_SendFailureDoesNotFailCall(t *testing.T) {
	f := newFixture(t)
	reqs := f.requests(t, 3, false)
	f.mailer.failFor[reqs[1].Email] = errors.New("greylisted")

	result, err := f.svc.EnqueueBatch(context.Background(), domain.CategoryEvaluation, reqs)
	if err != nil {
		t.Fatalf("EnqueueBatch: %v", err)
	}
	if result.Immediate != 3 {
		t.Errorf("immediate = %d, want 3: admission is not affected by delivery", result.Immediate)
	}
	if len(f.mailer.sent) != 2 {
		t.Errorf("sent = %v, want the two good recipients", f.mailer.sent)
	}

	// The failed item stays queued at attempt 1 for the next drain.
	stats, _ := f.svc.Stats(context.Background())
	if stats.Pending != 1 {
		t.Errorf("pending = %d, want 1 requeued", stats.Pending)
	}
}

func TestEnqueueBatch_InvalidItemRejectsBatch(t *testing.T) {
	f := newFixture(t)
	reqs := f.requests(t, 2, false)
	reqs[1].Email = "not-an-address"

	_, err := f.svc.EnqueueBatch(context.Background(), domain.CategoryEvaluation, reqs)
	if !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Errorf("nothing should send on a rejected batch")
	}
	if items := f.repo.All(); len(items) != 0 {
		t.Errorf("store has %d items, want none persisted", len(items))
	}
}

func TestDrain_ThenStatsAreConsistent(t *testing.T) {
	f := newFixture(t)

	// Queue without draining: seed pending rows directly.
	reqs := f.requests(t, 4, true)
	items := make([]*domain.QueueItem, len(reqs))
	today := rate.StartOfDay(f.now, f.now.Location())
	for i, req := range reqs {
		items[i] = &domain.QueueItem{
			AttendeeID:    req.AttendeeID,
			Email:         req.Email,
			Category:      domain.CategoryCertificate,
			Payload:       req.Payload,
			Status:        domain.StatusPending,
			ScheduledDate: today,
			Priority:      i,
		}
	}
	if err := f.repo.Insert(context.Background(), items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	summary, err := f.svc.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Sent != 4 || summary.Remaining != 0 {
		t.Errorf("summary = %+v", summary)
	}

	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 0 || stats.TodayLimit.Used != 4 {
		t.Errorf("stats = %+v", stats)
	}
}

// Immediate sends go through the normal oldest-first claim: older backlog
// eligible today ships before the batch's own items, and the result's
// Immediate field counts the sends triggered rather than batch items
// delivered.
func TestEnqueueBatch_ImmediateSendsOldestFirst(t *testing.T) {
	f := newFixture(t)

	backlogID := int64(9001)
	f.store.Add(&recipient.Attendee{
		ID:          backlogID,
		FirstName:   "stale",
		LastName:    "backlog",
		Email:       "backlog@example.com",
		ReferenceID: "REF-OLD",
		Event:       recipient.Event{ID: 5, Name: "Incident Command Workshop"},
	})
	yesterday := rate.StartOfDay(f.now, f.now.Location()).AddDate(0, 0, -1)
	backlog := &domain.QueueItem{
		AttendeeID:    &backlogID,
		Email:         "backlog@example.com",
		Category:      domain.CategoryEvaluation,
		Payload:       domain.Payload{ReferenceID: "REF-OLD", EventID: 5},
		Status:        domain.StatusPending,
		ScheduledDate: yesterday,
	}
	if err := f.repo.Insert(context.Background(), []*domain.QueueItem{backlog}); err != nil {
		t.Fatalf("seed backlog: %v", err)
	}

	result, err := f.svc.EnqueueBatch(context.Background(),
		domain.CategoryEvaluation, f.requests(t, 1, false))
	if err != nil {
		t.Fatalf("EnqueueBatch: %v", err)
	}
	if result.Immediate != 1 {
		t.Errorf("immediate = %d, want 1", result.Immediate)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0] != "backlog@example.com" {
		t.Errorf("sent = %v, want the older backlog item first", f.mailer.sent)
	}

	// The batch's own item stays pending for the next drain.
	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 1 {
		t.Errorf("pending = %d, want the admitted item still queued", stats.Pending)
	}
}

// A drain pass takes longer than any single request or shutdown deadline, so
// the caller's context expiring must not abort it mid-pass.
func TestDrain_OutlivesCallerDeadline(t *testing.T) {
	f := newFixture(t)

	reqs := f.requests(t, 10, true)
	items := make([]*domain.QueueItem, len(reqs))
	today := rate.StartOfDay(f.now, f.now.Location())
	for i, req := range reqs {
		items[i] = &domain.QueueItem{
			AttendeeID:    req.AttendeeID,
			Email:         req.Email,
			Category:      domain.CategoryCertificate,
			Payload:       req.Payload,
			Status:        domain.StatusPending,
			ScheduledDate: today,
			Priority:      i,
		}
	}
	if err := f.repo.Insert(context.Background(), items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 10 items paced at SendInterval take well past this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	summary, err := f.svc.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Sent != 10 || summary.Remaining != 0 {
		t.Errorf("summary = %+v, want the whole backlog drained", summary)
	}
	if len(f.mailer.sent) != 10 {
		t.Errorf("sent %d emails, want 10", len(f.mailer.sent))
	}
}

func TestStep_ProcessesExactlyOne(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.EnqueueBatch(context.Background(), domain.CategoryEvaluation, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	if outcome := f.svc.Step(context.Background()); outcome.Status != domain.OutcomeIdle {
		t.Fatalf("outcome = %+v, want idle on empty queue", outcome)
	}

	reqs := f.requests(t, 2, false)
	today := rate.StartOfDay(f.now, f.now.Location())
	seed := []*domain.QueueItem{
		{AttendeeID: reqs[0].AttendeeID, Email: reqs[0].Email, Category: domain.CategoryEvaluation,
			Payload: reqs[0].Payload, Status: domain.StatusPending, ScheduledDate: today},
		{AttendeeID: reqs[1].AttendeeID, Email: reqs[1].Email, Category: domain.CategoryEvaluation,
			Payload: reqs[1].Payload, Status: domain.StatusPending, ScheduledDate: today, Priority: 1},
	}
	if err := f.repo.Insert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	outcome := f.svc.Step(context.Background())
	if outcome.Status != domain.OutcomeSent {
		t.Fatalf("outcome = %+v, want sent", outcome)
	}
	if len(f.mailer.sent) != 1 {
		t.Errorf("step sent %d emails, want exactly 1", len(f.mailer.sent))
	}
}

func TestStats_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.EnqueueBatch(context.Background(), domain.CategoryEvaluation, f.requests(t, 2, false)); err != nil {
		t.Fatalf("EnqueueBatch: %v", err)
	}

	first, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	second, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if first.Pending != second.Pending || first.TodayLimit != second.TodayLimit {
		t.Errorf("stats changed between reads: %+v vs %+v", first, second)
	}
	if len(f.mailer.sent) != 2 {
		t.Errorf("stats must not trigger sends, mailer saw %v", f.mailer.sent)
	}
}

func TestCapacity_PassesThrough(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Capacity(context.Background(), domain.CategoryEvaluation, 10)
	if err != nil {
		t.Fatalf("Capacity: %v", err)
	}
	if !c.CanSend || c.Available != 40 {
		t.Errorf("capacity = %+v, want 40 available", c)
	}
}
