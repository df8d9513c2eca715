package workers

import (
	"context"
	"log/slog"
	"time"

	"gimp-server/contract"
	"gimp-server/domain/event"
)

// SnapshotWorker periodically persists the whole registry. It only
// reads store snapshots, so a slow disk never stalls live updates;
// a failed write is logged and retried on the next tick.
type SnapshotWorker struct {
	log      *slog.Logger
	store    contract.IGroupStore
	repo     contract.ISnapshotRepository
	events   chan<- event.DomainEvent
	interval time.Duration
}

func NewSnapshotWorker(log *slog.Logger, store contract.IGroupStore,
	repo contract.ISnapshotRepository, events chan<- event.DomainEvent,
	interval time.Duration) *SnapshotWorker {
	return &SnapshotWorker{log: log, store: store, repo: repo, events: events, interval: interval}
}

func (w *SnapshotWorker) Run(ctx context.Context) error {
	w.log.Info("Starting snapshot worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.persist()
		}
	}
}

func (w *SnapshotWorker) persist() {
	snapshot := w.store.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	if err := w.repo.Save(snapshot); err != nil {
		w.log.Error("Snapshot write failed, retrying next cycle", "error", err)
		return
	}
	w.log.Debug("Registry snapshot written", "groups", len(snapshot))
	select {
	case w.events <- event.SnapshotWritten{Groups: len(snapshot), At: time.Now().UTC()}:
	default:
	}
}
