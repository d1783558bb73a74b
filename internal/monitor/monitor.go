// Package monitor periodically reports orders that never reached the finance hub.
package monitor

import (
	"context"
	"time"

	"jobshop/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// StuckOrderLister returns orders created before now minus olderThan that
// were not transferred.
type StuckOrderLister interface {
	ListStuck(ctx context.Context, olderThan time.Duration) ([]model.Order, error)
}

// Worker checks for stuck orders on every tick.
type Worker struct {
	orders     StuckOrderLister
	gauge      prometheus.Gauge
	stuckAfter time.Duration
	interval   time.Duration
	logger     zerolog.Logger
}

// NewWorker creates a stuck order worker.
func NewWorker(orders StuckOrderLister, gauge prometheus.Gauge, stuckAfter, interval time.Duration, logger zerolog.Logger) *Worker {
	return &Worker{
		orders:     orders,
		gauge:      gauge,
		stuckAfter: stuckAfter,
		interval:   interval,
		logger:     logger.With().Str("component", "stuck_order_monitor").Logger(),
	}
}

// Run checks once immediately and then on every interval until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().
		Dur("interval", w.interval).
		Dur("stuck_after", w.stuckAfter).
		Msg("stuck order monitor started")

	w.check(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("stuck order monitor stopped")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Worker) check(ctx context.Context) {
	orders, err := w.orders.ListStuck(ctx, w.stuckAfter)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("failed to list stuck orders")
		}
		return
	}

	w.gauge.Set(float64(len(orders)))

	for _, o := range orders {
		w.logger.Error().
			Str("severity", "critical").
			Str("order_id", o.ID.String()).
			Int64("user_id", o.UserID).
			Str("status", string(o.Status)).
			Time("created_at", o.CreatedAt).
			Msg("order not transferred to finance hub")
	}
}
