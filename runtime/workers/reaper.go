package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"gimp-server/contract"
	"gimp-server/domain/event"
)

// MemberKey identifies one idle timer: a (group, member) pair.
type MemberKey struct {
	Group  string
	Member string
}

// Reaper bounds the lifetime of member state. Every accepted update
// rearms the member's single-shot timer; when it expires the member
// is removed from the store and the eviction is reported on the event
// channel. Timers are keyed per member, there is no registry sweep.
type Reaper struct {
	log        *slog.Logger
	timers     *ttlcache.Cache[MemberKey, time.Time]
	idleWindow time.Duration
}

func NewReaper(log *slog.Logger, idleWindow time.Duration,
	store contract.IGroupStore, events chan<- event.DomainEvent) *Reaper {
	timers := ttlcache.New[MemberKey, time.Time](
		ttlcache.WithTTL[MemberKey, time.Time](idleWindow),
		ttlcache.WithDisableTouchOnHit[MemberKey, time.Time](),
	)

	r := &Reaper{log: log, timers: timers, idleWindow: idleWindow}

	timers.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[MemberKey, time.Time]) {
		if reason != ttlcache.EvictionReasonExpired {
			// Disarmed explicitly, nothing to evict.
			return
		}
		key := item.Key()
		log.Info("Removing member due to inactivity", "group", key.Group, "member", key.Member)
		if !store.RemoveMember(key.Group, key.Member) {
			return
		}
		select {
		case events <- event.MemberEvicted{Group: key.Group, Member: key.Member, At: time.Now().UTC()}:
		default:
			log.Debug("Eviction event lost, channel full")
		}
	})

	return r
}

// Arm starts or rearms the idle timer for a member, replacing any
// previously armed timer for the same pair.
func (r *Reaper) Arm(group, member string) {
	r.timers.Set(MemberKey{Group: group, Member: member}, time.Now().UTC(), ttlcache.DefaultTTL)
}

// Disarm cancels a member's timer without evicting it. Used when the
// member leaves by another path, so timers never leak.
func (r *Reaper) Disarm(group, member string) {
	r.timers.Delete(MemberKey{Group: group, Member: member})
}

// Run drives the expiration loop until the context is canceled.
func (r *Reaper) Run(ctx context.Context) error {
	r.log.Info("Starting idle reaper", "idle_window", r.idleWindow)
	go func() {
		<-ctx.Done()
		r.timers.Stop()
	}()
	r.timers.Start()
	return nil
}
