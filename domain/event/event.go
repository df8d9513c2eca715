package event

import (
	"time"

	"gimp-server/domain"
)

// DomainEvent is anything the fanout worker can route to a group's
// live subscribers. Events with an empty group name are observability
// only and never reach a room.
type DomainEvent interface {
	GroupName() string
}

// MemberUpdated carries the scrubbed result of an accepted update.
// OriginSession identifies the connection that submitted it, so the
// fanout can skip echoing it back; it is empty for HTTP submits.
type MemberUpdated struct {
	Group         string
	OriginSession string
	Member        domain.MemberView
	At            time.Time
}

func (e MemberUpdated) GroupName() string { return e.Group }

// MemberEvicted is emitted by the reaper when a member's idle timer
// fires without a fresh update.
type MemberEvicted struct {
	Group  string
	Member string
	At     time.Time
}

func (e MemberEvicted) GroupName() string { return e.Group }

// SnapshotWritten reports a successful periodic persistence pass.
type SnapshotWritten struct {
	Groups int
	At     time.Time
}

func (e SnapshotWritten) GroupName() string { return "" }
