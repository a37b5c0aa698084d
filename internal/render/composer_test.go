package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/recipient"
)

type stubRenderer struct {
	pdf []byte
	err error

	lastTemplate domain.TemplateType
}

func (s *stubRenderer) Render(_ context.Context, _ *recipient.Attendee, tpl domain.TemplateType) ([]byte, error) {
	s.lastTemplate = tpl
	return s.pdf, s.err
}

func testAttendee() *recipient.Attendee {
	return &recipient.Attendee{
		ID:          7,
		FirstName:   "juan",
		LastName:    "dela cruz",
		Email:       "juan@example.com",
		ReferenceID: "REF-001",
		Event: recipient.Event{
			ID:   3,
			Name: "Basic Safety Training",
		},
	}
}

func newTestComposer(t *testing.T, store *recipient.MockStore, certs CertificateRenderer) *Composer {
	t.Helper()
	c, err := NewComposer(store, certs, Options{
		FromName:    "Petrosphere Events",
		FromAddress: "events@petros-global.com",
		SiteURL:     "https://events.petros-global.com/",
	})
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	return c
}

func TestCompose_Evaluation(t *testing.T) {
	store := recipient.NewMockStore()
	store.Add(testAttendee())
	c := newTestComposer(t, store, &stubRenderer{})

	msg, err := c.Compose(context.Background(), &domain.QueueItem{
		Email:    "juan@example.com",
		Category: domain.CategoryEvaluation,
		Payload:  domain.Payload{ReferenceID: "REF-001", EventID: 3},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if msg.To != "juan@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if want := "Evaluation Form - Basic Safety Training"; msg.Subject != want {
		t.Errorf("Subject = %q, want %q", msg.Subject, want)
	}
	if !strings.Contains(msg.HTML, "Juan Dela Cruz") {
		t.Errorf("body missing capitalized attendee name:\n%s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "https://events.petros-global.com/evaluation/REF-001") {
		t.Errorf("body missing evaluation link:\n%s", msg.HTML)
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("evaluation message should have no attachments, got %d", len(msg.Attachments))
	}
}

func TestCompose_CertificateAttachesPDF(t *testing.T) {
	store := recipient.NewMockStore()
	store.Add(testAttendee())
	certs := &stubRenderer{pdf: []byte("%PDF-1.4 fake")}
	c := newTestComposer(t, store, certs)

	msg, err := c.Compose(context.Background(), &domain.QueueItem{
		Email:    "juan@example.com",
		Category: domain.CategoryCertificate,
		Payload: domain.Payload{
			ReferenceID:  "REF-001",
			EventID:      3,
			TemplateType: domain.TemplateAwardee,
		},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if certs.lastTemplate != domain.TemplateAwardee {
		t.Errorf("renderer called with template %q", certs.lastTemplate)
	}
	if want := "Certificate of Recognition - Basic Safety Training"; msg.Subject != want {
		t.Errorf("Subject = %q, want %q", msg.Subject, want)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if want := "Certificate_Recognition_Juan_Dela_Cruz.pdf"; att.Filename != want {
		t.Errorf("attachment filename = %q, want %q", att.Filename, want)
	}
	if att.ContentType != "application/pdf" {
		t.Errorf("attachment content type = %q", att.ContentType)
	}
	if string(att.Content) != "%PDF-1.4 fake" {
		t.Errorf("attachment content = %q", att.Content)
	}
	if !strings.Contains(msg.HTML, "Recognition") {
		t.Errorf("body missing certificate label:\n%s", msg.HTML)
	}
}

func TestCompose_CertificateDefaultsToParticipation(t *testing.T) {
	store := recipient.NewMockStore()
	store.Add(testAttendee())
	certs := &stubRenderer{pdf: []byte("pdf")}
	c := newTestComposer(t, store, certs)

	msg, err := c.Compose(context.Background(), &domain.QueueItem{
		Email:    "juan@example.com",
		Category: domain.CategoryCertificate,
		Payload:  domain.Payload{ReferenceID: "REF-001", EventID: 3},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if certs.lastTemplate != domain.TemplateParticipation {
		t.Errorf("renderer called with template %q, want participation", certs.lastTemplate)
	}
	if !strings.Contains(msg.Subject, "Certificate of Participation") {
		t.Errorf("Subject = %q", msg.Subject)
	}
}

func TestCompose_UnknownAttendee(t *testing.T) {
	c := newTestComposer(t, recipient.NewMockStore(), &stubRenderer{})

	_, err := c.Compose(context.Background(), &domain.QueueItem{
		Email:    "ghost@example.com",
		Category: domain.CategoryEvaluation,
		Payload:  domain.Payload{ReferenceID: "NOPE"},
	})
	if !errors.Is(err, domain.ErrAttendeeNotFound) {
		t.Errorf("err = %v, want ErrAttendeeNotFound", err)
	}
}

func TestCompose_RendererFailure(t *testing.T) {
	store := recipient.NewMockStore()
	store.Add(testAttendee())
	rendererErr := errors.New("renderer unavailable")
	c := newTestComposer(t, store, &stubRenderer{err: rendererErr})

	_, err := c.Compose(context.Background(), &domain.QueueItem{
		Email:    "juan@example.com",
		Category: domain.CategoryCertificate,
		Payload:  domain.Payload{ReferenceID: "REF-001", TemplateType: domain.TemplateParticipation},
	})
	if !errors.Is(err, rendererErr) {
		t.Errorf("err = %v, want renderer error", err)
	}
}

func TestCompose_UsesItemEmailSnapshot(t *testing.T) {
	att := testAttendee()
	att.Email = "new-address@example.com"
	store := recipient.NewMockStore()
	store.Add(att)
	c := newTestComposer(t, store, &stubRenderer{})

	msg, err := c.Compose(context.Background(), &domain.QueueItem{
		Email:    "old-address@example.com",
		Category: domain.CategoryEvaluation,
		Payload:  domain.Payload{ReferenceID: "REF-001"},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if msg.To != "old-address@example.com" {
		t.Errorf("To = %q, want queued snapshot address", msg.To)
	}
}

func TestFormatEventDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  string
	}{
		{"single day", day(2026, time.March, 10), day(2026, time.March, 10), "March 10, 2026"},
		{"same month", day(2026, time.March, 10), day(2026, time.March, 12), "March 10-12, 2026"},
		{"cross month", day(2026, time.March, 30), day(2026, time.April, 2), "March 30 - April 2, 2026"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatEventDate(tc.start, tc.end); got != tc.want {
				t.Errorf("FormatEventDate = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCapitalizeWords(t *testing.T) {
	cases := map[string]string{
		"juan dela cruz": "Juan Dela Cruz",
		"MARIA":          "Maria",
		"":               "",
	}
	for in, want := range cases {
		if got := CapitalizeWords(in); got != want {
			t.Errorf("CapitalizeWords(%q) = %q, want %q", in, got, want)
		}
	}
}
