package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
)

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) Insert(ctx context.Context, items []*domain.QueueItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, item := range items {
		payload, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO email_queue
				(attendee_id, email, category, payload, status, scheduled_date, priority, attempt, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING id`,
			item.AttendeeID, item.Email, item.Category, payload, item.Status,
			item.ScheduledDate, item.Priority, item.Attempt, item.CreatedAt,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert queue item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit queue insert: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) GetByID(ctx context.Context, id int64) (*domain.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, attendee_id, email, category, payload, status,
		       scheduled_date, priority, attempt, last_attempt_at, created_at
		FROM email_queue WHERE id = $1`, id)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

// ClaimNext is the correctness-critical concurrency primitive: selection and
// the pending->processing transition happen in one statement, with
// FOR UPDATE SKIP LOCKED so concurrent workers never claim the same row.
func (r *pgQueueRepository) ClaimNext(
	ctx context.Context,
	today time.Time,
	attemptCeiling int,
	categories []domain.Category,
	exclude []int64,
) (*domain.QueueItem, error) {
	if len(categories) == 0 {
		return nil, domain.ErrNotFound
	}
	cats := make([]string, len(categories))
	for i, c := range categories {
		cats[i] = string(c)
	}
	if exclude == nil {
		exclude = []int64{}
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE email_queue
		SET status = 'processing', last_attempt_at = now()
		WHERE id = (
			SELECT id FROM email_queue
			WHERE status = 'pending'
			  AND scheduled_date <= $1
			  AND attempt < $2
			  AND category = ANY($3)
			  AND NOT (id = ANY($4))
			ORDER BY scheduled_date ASC, priority ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, attendee_id, email, category, payload, status,
		          scheduled_date, priority, attempt, last_attempt_at, created_at`,
		today, attemptCeiling, cats, exclude,
	)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

func (r *pgQueueRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_queue
		SET status = 'sent', last_attempt_at = $1
		WHERE id = $2`, at, id)
	return err
}

func (r *pgQueueRepository) Requeue(ctx context.Context, id int64, attempt int, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_queue
		SET status = 'pending', attempt = $1, last_attempt_at = $2
		WHERE id = $3`, attempt, at, id)
	return err
}

func (r *pgQueueRepository) MarkFailed(ctx context.Context, id int64, attempt int, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_queue
		SET status = 'failed', attempt = $1, last_attempt_at = $2
		WHERE id = $3`, attempt, at, id)
	return err
}

func (r *pgQueueRepository) CountSentBetween(ctx context.Context, from, to time.Time) (domain.DailyCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM email_queue
		WHERE status = 'sent'
		  AND last_attempt_at >= $1
		  AND last_attempt_at < $2
		GROUP BY category`, from, to)
	if err != nil {
		return domain.DailyCounts{}, fmt.Errorf("count sent: %w", err)
	}
	defer rows.Close()

	var counts domain.DailyCounts
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return domain.DailyCounts{}, err
		}
		switch domain.Category(category) {
		case domain.CategoryEvaluation:
			counts.Evaluation = n
		case domain.CategoryCertificate:
			counts.Certificate = n
		}
		counts.Total += n
	}
	return counts, rows.Err()
}

func (r *pgQueueRepository) CountPendingEligible(ctx context.Context, today time.Time, attemptCeiling int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM email_queue
		WHERE status = 'pending'
		  AND scheduled_date <= $1
		  AND attempt < $2`, today, attemptCeiling).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending eligible: %w", err)
	}
	return n, nil
}

func (r *pgQueueRepository) PendingByDate(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scheduled_date, COUNT(*)
		FROM email_queue
		WHERE status = 'pending'
		GROUP BY scheduled_date
		ORDER BY scheduled_date`)
	if err != nil {
		return nil, fmt.Errorf("pending by date: %w", err)
	}
	defer rows.Close()

	byDate := make(map[string]int)
	for rows.Next() {
		var date time.Time
		var n int
		if err := rows.Scan(&date, &n); err != nil {
			return nil, err
		}
		byDate[date.Format(domain.DateFormat)] = n
	}
	return byDate, rows.Err()
}

// ---- helpers ----

// scanQueueItem reads a single queue row from any pgx row type.
func scanQueueItem(row pgx.Row) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var payload []byte
	err := row.Scan(
		&item.ID, &item.AttendeeID, &item.Email, &item.Category, &payload,
		&item.Status, &item.ScheduledDate, &item.Priority, &item.Attempt,
		&item.LastAttemptAt, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &item.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload for item %d: %w", item.ID, err)
		}
	}
	return &item, nil
}
