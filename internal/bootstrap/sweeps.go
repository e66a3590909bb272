package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/config"
	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
)

type Completer interface {
	CompleteEndedBookings(ctx context.Context) ([]domain.Booking, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunSweeps releases orphaned claims and completes ended bookings on their
// own tickers until ctx is cancelled.
func RunSweeps(ctx context.Context, cfg config.WorkerConfig, completer Completer, reconciler Sweeper, log *slog.Logger) {
	reconcileTicker := time.NewTicker(cfg.ReconcileInterval)
	defer reconcileTicker.Stop()
	completeTicker := time.NewTicker(cfg.CompleteInterval)
	defer completeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reconcileTicker.C:
			released, err := reconciler.Sweep(ctx)
			if err != nil {
				log.Error("reconcile sweep failed", sl.Err(err))
				continue
			}
			if released > 0 {
				log.Info("released orphaned claims", slog.Int("count", released))
			}
		case <-completeTicker.C:
			completed, err := completer.CompleteEndedBookings(ctx)
			if err != nil {
				log.Error("complete bookings failed", sl.Err(err))
				continue
			}
			if len(completed) > 0 {
				log.Info("completed bookings", slog.Int("count", len(completed)))
			}
		}
	}
}
