// Package schedule triggers drain passes on a cron expression, replacing the
// manual "hit the drain endpoint" workflow for normal operation.
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
)

// Drainer is the part of the service the runner invokes.
type Drainer interface {
	Drain(ctx context.Context) (*domain.DrainSummary, error)
}

// Runner owns the cron scheduler. One entry: the periodic drain. The cron
// runs in the configured timezone so "every hour" lines up with the same
// day-boundary the budget counters use.
type Runner struct {
	c      *cron.Cron
	logger *zap.Logger
}

// NewRunner registers the drain job under the given cron expression
// (standard five-field syntax). The expression is validated here, at
// startup, not at first tick. The pass's deadline belongs to the drainer,
// sized for a full budget of paced sends.
func NewRunner(expr string, loc *time.Location, drainer Drainer, logger *zap.Logger) (*Runner, error) {
	c := cron.New(cron.WithLocation(loc))

	_, err := c.AddFunc(expr, func() {
		summary, err := drainer.Drain(context.Background())
		if err != nil {
			fields := []zap.Field{zap.Error(err)}
			if summary != nil {
				fields = append(fields,
					zap.Int("sent", summary.Sent),
					zap.Int("failed", summary.Failed))
			}
			logger.Error("scheduled drain failed", fields...)
			return
		}
		logger.Info("scheduled drain finished",
			zap.Int("sent", summary.Sent),
			zap.Int("failed", summary.Failed),
			zap.Int("remaining", summary.Remaining))
	})
	if err != nil {
		return nil, err
	}

	return &Runner{c: c, logger: logger}, nil
}

// Start launches the scheduler in its own goroutine.
func (r *Runner) Start() {
	r.c.Start()
	r.logger.Info("drain scheduler started")
}

// Stop halts scheduling and waits for a running drain to finish.
func (r *Runner) Stop() {
	<-r.c.Stop().Done()
	r.logger.Info("drain scheduler stopped")
}
