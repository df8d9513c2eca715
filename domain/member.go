// Package domain contains the core concepts of the presence relay.
// This file defines the Member entity and its read model.
// No runtime, network, or storage logic should be added here.
package domain

import "github.com/samber/lo"

const (
	DefaultHP        = 10
	DefaultHPMax     = 10
	DefaultPrayer    = 1
	DefaultPrayerMax = 1

	// MaxNoteLength caps notes and custom statuses on write.
	MaxNoteLength = 2000
)

// Location is a world position. A nil *Location means "no known
// location", which is a valid state distinct from the origin tile.
type Location struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Plane int `json:"plane"`
}

// Member is the relay's record for one participant of a group.
// The name is immutable once the entry exists; every other field is
// mutated in place by the merge engine.
type Member struct {
	Name         string    `json:"name"`
	Location     *Location `json:"location,omitempty"`
	HP           int       `json:"hp"`
	HPMax        int       `json:"hpMax"`
	Prayer       int       `json:"prayer"`
	PrayerMax    int       `json:"prayerMax"`
	CustomStatus string    `json:"customStatus"`
	Notes        string    `json:"notes"`
	GhostMode    bool      `json:"ghostMode"`
	LastActivity string    `json:"lastActivity"`
}

// NewMember creates a member with the starting vitals every fresh
// entry gets before its first merge.
func NewMember(name string) *Member {
	return &Member{
		Name:      name,
		HP:        DefaultHP,
		HPMax:     DefaultHPMax,
		Prayer:    DefaultPrayer,
		PrayerMax: DefaultPrayerMax,
	}
}

// Clone returns a deep copy, safe to hand to readers outside the
// store's lock.
func (m *Member) Clone() Member {
	c := *m
	if m.Location != nil {
		loc := *m.Location
		c.Location = &loc
	}
	return c
}

// MemberView is the scrubbed read model served to groupmates.
// Fields are pointers so a ghosted member serializes to nothing but
// its identity and ghost flag, while a present zero value (hp 0,
// empty notes) still serializes.
type MemberView struct {
	Name         string    `json:"name"`
	Location     *Location `json:"location,omitempty"`
	HP           *int      `json:"hp,omitempty"`
	HPMax        *int      `json:"hpMax,omitempty"`
	Prayer       *int      `json:"prayer,omitempty"`
	PrayerMax    *int      `json:"prayerMax,omitempty"`
	CustomStatus *string   `json:"customStatus,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	GhostMode    bool      `json:"ghostMode"`
	LastActivity *string   `json:"lastActivity,omitempty"`
}

// View applies the scrub rule at read time: a ghosted member exposes
// only its name and ghost flag, whatever the store still holds from
// before ghosting.
func (m *Member) View() MemberView {
	if m.GhostMode {
		return MemberView{Name: m.Name, GhostMode: true}
	}
	view := MemberView{
		Name:         m.Name,
		HP:           lo.ToPtr(m.HP),
		HPMax:        lo.ToPtr(m.HPMax),
		Prayer:       lo.ToPtr(m.Prayer),
		PrayerMax:    lo.ToPtr(m.PrayerMax),
		CustomStatus: lo.ToPtr(m.CustomStatus),
		Notes:        lo.ToPtr(m.Notes),
		LastActivity: lo.ToPtr(m.LastActivity),
	}
	if m.Location != nil {
		loc := *m.Location
		view.Location = &loc
	}
	return view
}

// GroupSnapshot and RegistrySnapshot mirror the durable document
// layout: group name, then member name, then the full field set.
type GroupSnapshot map[string]Member

type RegistrySnapshot map[string]GroupSnapshot
