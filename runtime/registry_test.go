package runtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gimp-server/domain/event"
)

type Sink struct{}

func (s Sink) Consume(_ context.Context, _ event.DomainEvent) error {
	return nil
}

func TestRegistry_Subscribe_One_Group_One_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()
	sink := Sink{}

	// Given no connection is subscribed
	rooms, sessions := registry.Counts()
	req.Zero(rooms)
	req.Zero(sessions)

	// When a session subscribes a group
	registry.Subscribe(sessionID, "the-boys", sink)

	// Then
	rooms, sessions = registry.Counts()
	req.Equal(1, rooms)
	req.Equal(1, sessions)
	req.Len(registry.SinksForGroup("the-boys", ""), 1)
	req.Contains(registry.SinksForGroup("the-boys", ""), sink)
}

func TestRegistry_SinksForGroup_ExcludesOriginSession(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionA := uuid.NewString()
	sessionB := uuid.NewString()

	// When two sessions subscribe the same group
	registry.Subscribe(sessionA, "the-boys", Sink{})
	registry.Subscribe(sessionB, "the-boys", Sink{})

	// Then excluding the origin leaves only the other subscriber
	req.Len(registry.SinksForGroup("the-boys", ""), 2)
	req.Len(registry.SinksForGroup("the-boys", sessionA), 1)
}

func TestRegistry_SinksForGroup_UnknownGroup(t *testing.T) {
	registry := NewRegistry()
	require.Nil(t, registry.SinksForGroup("ghost-town", ""))
}

func TestRegistry_Unsubscribe_One_Group_One_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()

	// Given a subscribed session
	registry.Subscribe(sessionID, "the-boys", Sink{})

	// When it unsubscribes
	registry.Unsubscribe(sessionID, "the-boys")

	// Then no session is left and the room is gone
	rooms, sessions := registry.Counts()
	req.Zero(rooms)
	req.Zero(sessions)
	req.Nil(registry.SinksForGroup("the-boys", ""))
}

func TestRegistry_Unsubscribe_One_Group_Multiple_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionA := uuid.NewString()
	sessionB := uuid.NewString()

	registry.Subscribe(sessionA, "the-boys", Sink{})
	registry.Subscribe(sessionB, "the-boys", Sink{})

	// When one session unsubscribes
	registry.Unsubscribe(sessionA, "the-boys")

	// Then only the other remains
	rooms, sessions := registry.Counts()
	req.Equal(1, rooms)
	req.Equal(1, sessions)
	req.Len(registry.SinksForGroup("the-boys", ""), 1)
}
