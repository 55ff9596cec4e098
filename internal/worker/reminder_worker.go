package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"starledger/internal/database"
	"starledger/internal/metrics"
	"starledger/internal/service"
)

// ReminderWorker re-notifies the admin about orders whose payment proof
// has waited longer than remindAfter. Each order is reminded about once.
type ReminderWorker struct {
	store       *database.Store
	notifier    service.Notifier
	interval    time.Duration
	remindAfter time.Duration
	batchSize   int
	now         func() time.Time
}

func NewReminderWorker(store *database.Store, notifier service.Notifier, interval, remindAfter time.Duration) *ReminderWorker {
	return &ReminderWorker{
		store:       store,
		notifier:    notifier,
		interval:    interval,
		remindAfter: remindAfter,
		batchSize:   20,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (w *ReminderWorker) Start(ctx context.Context) error {
	slog.Info("starting reminder worker", "interval", w.interval, "remind_after", w.remindAfter)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reminder worker stopped")
			return nil
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				slog.Error("reminder batch failed", "error", err)
			}
		}
	}
}

func (w *ReminderWorker) processBatch(ctx context.Context) error {
	now := w.now()
	orders, err := w.store.ListUnremindedPending(ctx, now.Add(-w.remindAfter), w.batchSize)
	if err != nil {
		return fmt.Errorf("list waiting orders: %w", err)
	}

	for _, order := range orders {
		ok, err := w.store.MarkReminded(ctx, order.ID, now)
		if err != nil {
			slog.Error("failed to mark order reminded", "order_id", order.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		waited := now.Sub(*order.ProofAt).Round(time.Minute)
		w.notifier.NotifyAdmin(fmt.Sprintf("⏰ Order %s (%d units, %s TON) is waiting for a decision for %s.",
			order.ID, order.Quantity, order.Price, waited), order.ID)
		metrics.ReminderSent()
		slog.Info("order reminder sent", "order_id", order.ID, "waited", waited)
	}

	return nil
}
