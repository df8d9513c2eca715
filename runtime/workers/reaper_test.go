package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gimp-server/domain"
	"gimp-server/domain/event"
)

type fakeStore struct {
	mu      sync.Mutex
	removed []MemberKey
}

func (f *fakeStore) ApplyUpdate(string, domain.UpdatePayload) (domain.MemberView, error) {
	return domain.MemberView{}, nil
}

func (f *fakeStore) GetGroup(string) (map[string]domain.MemberView, error) {
	return nil, nil
}

func (f *fakeStore) RemoveMember(group, member string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, MemberKey{Group: group, Member: member})
	return true
}

func (f *fakeStore) Snapshot() domain.RegistrySnapshot { return nil }

func (f *fakeStore) GroupCount() int { return 0 }

func (f *fakeStore) removedKeys() []MemberKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MemberKey(nil), f.removed...)
}

func startReaper(t *testing.T, store *fakeStore, window time.Duration, events chan event.DomainEvent) *Reaper {
	t.Helper()
	reaper := NewReaper(slog.New(slog.DiscardHandler), window, store, events)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = reaper.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return reaper
}

func TestReaper_EvictsAfterIdleWindow(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	events := make(chan event.DomainEvent, 4)
	reaper := startReaper(t, store, 50*time.Millisecond, events)

	// When a member's timer is armed and never refreshed
	reaper.Arm("the-boys", "Foo")

	// Then the member is removed and the eviction reported
	req.Eventually(func() bool {
		return len(store.removedKeys()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	req.Equal(MemberKey{Group: "the-boys", Member: "Foo"}, store.removedKeys()[0])

	select {
	case evt := <-events:
		evicted, ok := evt.(event.MemberEvicted)
		req.True(ok)
		req.Equal("Foo", evicted.Member)
	case <-time.After(time.Second):
		t.Fatal("eviction event never emitted")
	}
}

func TestReaper_RearmReplacesPreviousTimer(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	reaper := startReaper(t, store, 120*time.Millisecond, make(chan event.DomainEvent, 4))

	reaper.Arm("the-boys", "Foo")
	for i := 0; i < 4; i++ {
		time.Sleep(50 * time.Millisecond)
		reaper.Arm("the-boys", "Foo")
	}

	// The member outlived several idle windows thanks to rearms
	req.Empty(store.removedKeys())
}

func TestReaper_DisarmCancelsWithoutEviction(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	events := make(chan event.DomainEvent, 4)
	reaper := startReaper(t, store, 50*time.Millisecond, events)

	reaper.Arm("the-boys", "Foo")
	reaper.Disarm("the-boys", "Foo")

	time.Sleep(200 * time.Millisecond)
	req.Empty(store.removedKeys())
	req.Empty(events)
}

func TestReaper_TimersAreScopedPerMember(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	reaper := startReaper(t, store, 60*time.Millisecond, make(chan event.DomainEvent, 4))

	reaper.Arm("the-boys", "Foo")
	reaper.Arm("the-boys", "Bar")

	// Refresh only Bar until Foo's window has long passed
	req.Eventually(func() bool {
		reaper.Arm("the-boys", "Bar")
		keys := store.removedKeys()
		return len(keys) == 1 && keys[0].Member == "Foo"
	}, 2*time.Second, 20*time.Millisecond)
}
