package runtime

import (
	"log/slog"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"gimp-server/domain"
	"gimp-server/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGroupStore_ApplyUpdate_CreatesGroupAndMember(t *testing.T) {
	req := require.New(t)
	store := NewGroupStore(testLogger())

	// Given an empty store
	req.Equal(0, store.GroupCount())

	// When a first update names a new member
	view, err := store.ApplyUpdate("the-boys", domain.UpdatePayload{Name: "Foo"})

	// Then the group and member exist with default vitals
	req.NoError(err)
	req.Equal(1, store.GroupCount())
	req.Equal("Foo", view.Name)
	req.Equal(domain.DefaultHP, *view.HP)
	req.Equal(domain.DefaultPrayer, *view.Prayer)
	req.Nil(view.Location)
}

func TestGroupStore_ApplyUpdate_MissingIdentifiers(t *testing.T) {
	req := require.New(t)
	store := NewGroupStore(testLogger())

	_, err := store.ApplyUpdate("", domain.UpdatePayload{Name: "Foo"})
	req.ErrorIs(err, errors.ErrMissingGroupName)

	_, err = store.ApplyUpdate("the-boys", domain.UpdatePayload{})
	req.ErrorIs(err, errors.ErrMissingMemberName)
}

func TestGroupStore_ApplyUpdate_RejectsInvalidPayloadWithoutSideEffects(t *testing.T) {
	req := require.New(t)
	store := NewGroupStore(testLogger())

	_, err := store.ApplyUpdate("the-boys", domain.UpdatePayload{
		Name:     "Foo",
		Location: &domain.LocationPayload{X: lo.ToPtr(1.0)},
	})

	req.Error(err)
	var validationErr errors.ValidationError
	req.ErrorAs(err, &validationErr)

	// The member was never created
	views, err := store.GetGroup("the-boys")
	req.NoError(err)
	req.Empty(views)
}

func TestGroupStore_GetGroup_UnknownGroupIsEmptyNotError(t *testing.T) {
	req := require.New(t)
	store := NewGroupStore(testLogger())

	views, err := store.GetGroup("nobody-here")

	req.NoError(err)
	req.NotNil(views)
	req.Empty(views)
}

func TestGroupStore_RemoveMember_Idempotent(t *testing.T) {
	req := require.New(t)
	store := NewGroupStore(testLogger())
	_, err := store.ApplyUpdate("the-boys", domain.UpdatePayload{Name: "Foo"})
	req.NoError(err)

	req.True(store.RemoveMember("the-boys", "Foo"))
	req.False(store.RemoveMember("the-boys", "Foo"))
	req.False(store.RemoveMember("ghost-town", "Foo"))

	views, err := store.GetGroup("the-boys")
	req.NoError(err)
	req.Empty(views)
}

func TestGroupStore_Snapshot_DeepCopy(t *testing.T) {
	req := require.New(t)
	store := NewGroupStore(testLogger())
	_, err := store.ApplyUpdate("the-boys", domain.UpdatePayload{
		Name:     "Foo",
		Location: &domain.LocationPayload{X: lo.ToPtr(1.0), Y: lo.ToPtr(2.0), Plane: lo.ToPtr(0.0)},
	})
	req.NoError(err)

	snapshot := store.Snapshot()
	req.Len(snapshot, 1)
	stored := snapshot["the-boys"]["Foo"]
	req.Equal(&domain.Location{X: 1, Y: 2, Plane: 0}, stored.Location)

	// Mutating the live member afterwards must not reach the snapshot
	_, err = store.ApplyUpdate("the-boys", domain.UpdatePayload{
		Name:     "Foo",
		Location: &domain.LocationPayload{X: lo.ToPtr(9.0), Y: lo.ToPtr(9.0), Plane: lo.ToPtr(1.0)},
	})
	req.NoError(err)
	req.Equal(&domain.Location{X: 1, Y: 2, Plane: 0}, snapshot["the-boys"]["Foo"].Location)
}

func TestGroupStore_Snapshot_ReplayReproducesGroupState(t *testing.T) {
	req := require.New(t)
	store := NewGroupStore(testLogger())
	_, err := store.ApplyUpdate("the-boys", domain.UpdatePayload{
		Name:     "Foo",
		HP:       lo.ToPtr(0.0),
		Notes:    lo.ToPtr("at the bank"),
		Location: &domain.LocationPayload{X: lo.ToPtr(10.0), Y: lo.ToPtr(20.0), Plane: lo.ToPtr(0.0)},
	})
	req.NoError(err)
	_, err = store.ApplyUpdate("the-boys", domain.UpdatePayload{
		Name:      "Bar",
		GhostMode: lo.ToPtr(true),
	})
	req.NoError(err)

	// When the snapshot is replayed through a fresh store, member by
	// member, through the same validation path
	restored := NewGroupStore(testLogger())
	for group, members := range store.Snapshot() {
		for _, member := range members {
			_, err := restored.ApplyUpdate(group, domain.PayloadFromMember(member))
			req.NoError(err)
		}
	}

	// Then both stores serve the same scrubbed result
	want, err := store.GetGroup("the-boys")
	req.NoError(err)
	got, err := restored.GetGroup("the-boys")
	req.NoError(err)
	req.Equal(want, got)

	// And the ghosted member stayed scrubbed
	req.True(got["Bar"].GhostMode)
	req.Nil(got["Bar"].HP)
}
