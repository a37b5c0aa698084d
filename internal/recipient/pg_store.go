package recipient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by the application's attendees table.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) GetByReference(ctx context.Context, referenceID string) (*Attendee, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT a.id, a.personal_name, COALESCE(a.middle_name, ''), a.last_name,
		       a.email, a.reference_id, a.hassentevaluation, a.hasevaluation,
		       e.id, e.name, e.start_date, e.end_date, COALESCE(e.venue, '')
		FROM attendees a
		JOIN events e ON e.id = a.event_id
		WHERE a.reference_id = $1`, referenceID)

	var att Attendee
	err := row.Scan(
		&att.ID, &att.FirstName, &att.MiddleName, &att.LastName,
		&att.Email, &att.ReferenceID, &att.EvaluationSent, &att.EvaluationDone,
		&att.Event.ID, &att.Event.Name, &att.Event.StartDate, &att.Event.EndDate, &att.Event.Venue,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAttendeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attendee by reference: %w", err)
	}
	return &att, nil
}

func (s *pgStore) MarkEvaluationSent(ctx context.Context, attendeeID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE attendees SET hassentevaluation = true WHERE id = $1`, attendeeID)
	return err
}

func (s *pgStore) RecordCertificateSent(ctx context.Context, attendeeID int64, tpl domain.TemplateType, sentTo string, at time.Time) error {
	// certificate_sent is a JSONB array of delivery records.
	_, err := s.pool.Exec(ctx, `
		UPDATE attendees
		SET certificate_sent = COALESCE(certificate_sent, '[]'::jsonb) ||
			jsonb_build_object('type', $1::text, 'sent_at', $2::timestamptz, 'sent_to', $3::text)
		WHERE id = $4`, string(tpl), at, sentTo, attendeeID)
	return err
}
