package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gimp-server/contract"
	"gimp-server/domain"
	"gimp-server/domain/event"
	"gimp-server/runtime/workers"
)

// Stats is the best-effort server statistics read model.
type Stats struct {
	Groups      int `json:"groups"`
	ActiveRooms int `json:"activeRooms"`
	Subscribers int `json:"subscribers"`
}

// Orchestrator owns the update pipeline: store mutation, reaper
// rearm, and event dispatch towards the fanout worker. It is the only
// component allowed to mutate the group store.
type Orchestrator struct {
	log        *slog.Logger
	store      contract.IGroupStore
	registry   contract.IRegistry
	supervisor contract.ISupervisor
	reaper     *workers.Reaper
	snapshots  contract.ISnapshotRepository // nil when persistence is disabled

	events           chan event.DomainEvent
	sinkTimeout      time.Duration
	snapshotInterval time.Duration
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, store contract.IGroupStore,
	snapshots contract.ISnapshotRepository,
	bufferSize int, idleWindow, snapshotInterval, sinkTimeout time.Duration) *Orchestrator {
	events := make(chan event.DomainEvent, bufferSize)
	return &Orchestrator{
		log:              log,
		store:            store,
		registry:         registry,
		supervisor:       supervisor,
		reaper:           workers.NewReaper(log, idleWindow, store, events),
		snapshots:        snapshots,
		events:           events,
		sinkTimeout:      sinkTimeout,
		snapshotInterval: snapshotInterval,
	}
}

// ApplyUpdate runs the full accept path: validate and merge into the
// store, rearm the member's idle timer, then dispatch the scrubbed
// result to the member's room. originSession is empty for submits
// that arrive outside a subscribed connection.
func (o *Orchestrator) ApplyUpdate(group string, originSession string, p domain.UpdatePayload) (domain.MemberView, error) {
	view, err := o.store.ApplyUpdate(group, p)
	if err != nil {
		return domain.MemberView{}, err
	}

	o.reaper.Arm(group, p.Name)

	o.dispatch(event.MemberUpdated{
		Group:         group,
		OriginSession: originSession,
		Member:        view,
		At:            time.Now().UTC(),
	})
	return view, nil
}

func (o *Orchestrator) GetGroup(group string) (map[string]domain.MemberView, error) {
	return o.store.GetGroup(group)
}

// Join binds a connection's sink to a group room.
func (o *Orchestrator) Join(sessionID, group string, sink contract.EventSink) {
	o.registry.Subscribe(sessionID, group, sink)
}

// Leave drops the subscription only; the member state stays until the
// reaper times it out.
func (o *Orchestrator) Leave(sessionID, group string) {
	o.registry.Unsubscribe(sessionID, group)
}

func (o *Orchestrator) Stats() Stats {
	rooms, sessions := o.registry.Counts()
	return Stats{
		Groups:      o.store.GroupCount(),
		ActiveRooms: rooms,
		Subscribers: sessions,
	}
}

// Rehydrate replays a durable snapshot through the live update path,
// so restored state honors the exact same invariants. Each restored
// member gets a fresh idle window; nothing is broadcast.
func (o *Orchestrator) Rehydrate(snapshot domain.RegistrySnapshot) error {
	for group, members := range snapshot {
		for _, member := range members {
			if _, err := o.store.ApplyUpdate(group, domain.PayloadFromMember(member)); err != nil {
				return fmt.Errorf("restoring %s of group %s: %w", member.Name, group, err)
			}
			o.reaper.Arm(group, member.Name)
		}
	}
	o.log.Info("Registry rehydrated", "groups", len(snapshot))
	return nil
}

// dispatch hands an event to the fanout worker without ever blocking
// the update path.
func (o *Orchestrator) dispatch(evt event.DomainEvent) {
	select {
	case o.events <- evt:
	default:
		o.log.Warn(fmt.Sprintf("Event channel full for group %s, dropping event", evt.GroupName()))
	}
}

// Start registers all supervised workers and blocks until shutdown.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(workers.NewEventFanout(o.log, o.registry, o.events, o.sinkTimeout))
	o.supervisor.Add(o.reaper)
	if o.snapshots != nil {
		o.supervisor.Add(workers.NewSnapshotWorker(o.log, o.store, o.snapshots, o.events, o.snapshotInterval))
	}

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of all supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
