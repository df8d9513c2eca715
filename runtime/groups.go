// Package runtime wires the group store, the subscription registry,
// and the supervised workers together. It orchestrates the system
// without containing per-field merge rules or transport logic.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"gimp-server/domain"
	"gimp-server/errors"
)

// GroupStore is the single owner of all member state. Lookups take
// the store lock briefly; mutations serialize on the group's own
// lock, so updates to different groups never contend.
type GroupStore struct {
	mu     sync.RWMutex
	groups map[string]*memberGroup
	engine domain.MergeEngine
	log    *slog.Logger
}

type memberGroup struct {
	mu      sync.RWMutex
	members map[string]*domain.Member
}

func NewGroupStore(log *slog.Logger) *GroupStore {
	return &GroupStore{
		groups: make(map[string]*memberGroup),
		engine: domain.NewMergeEngine(),
		log:    log,
	}
}

// ApplyUpdate validates the payload, creates the group and member on
// demand, and merges under the group lock so concurrent readers see
// either the old state or the fully merged one.
func (s *GroupStore) ApplyUpdate(group string, p domain.UpdatePayload) (domain.MemberView, error) {
	if group == "" {
		return domain.MemberView{}, errors.ErrMissingGroupName
	}
	if err := s.engine.Validate(p); err != nil {
		return domain.MemberView{}, err
	}

	g := s.group(group)

	g.mu.Lock()
	defer g.mu.Unlock()
	member, ok := g.members[p.Name]
	if !ok {
		s.log.Info(fmt.Sprintf("Adding member %s to group %s", p.Name, group))
		member = domain.NewMember(p.Name)
		g.members[p.Name] = member
	}
	s.engine.Apply(member, p)
	return member.View(), nil
}

// GetGroup returns the scrubbed state of every member. An unknown
// group is a normal empty result, not an error.
func (s *GroupStore) GetGroup(group string) (map[string]domain.MemberView, error) {
	if group == "" {
		return nil, errors.ErrMissingGroupName
	}

	views := make(map[string]domain.MemberView)

	s.mu.RLock()
	g, ok := s.groups[group]
	s.mu.RUnlock()
	if !ok {
		return views, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for name, member := range g.members {
		views[name] = member.View()
	}
	return views, nil
}

// RemoveMember deletes a member entry. Idempotent; the group key
// itself survives empty, which is harmless.
func (s *GroupStore) RemoveMember(group, member string) bool {
	s.mu.RLock()
	g, ok := s.groups[group]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[member]; !ok {
		return false
	}
	delete(g.members, member)
	return true
}

// Snapshot deep-copies every group for the persistence gateway.
// Each group is copied under its own read lock, so the snapshot is
// consistent per member but not transactional across the registry.
func (s *GroupStore) Snapshot() domain.RegistrySnapshot {
	s.mu.RLock()
	names := make([]string, 0, len(s.groups))
	shards := make([]*memberGroup, 0, len(s.groups))
	for name, g := range s.groups {
		names = append(names, name)
		shards = append(shards, g)
	}
	s.mu.RUnlock()

	snapshot := make(domain.RegistrySnapshot, len(names))
	for i, g := range shards {
		g.mu.RLock()
		members := make(domain.GroupSnapshot, len(g.members))
		for name, member := range g.members {
			members[name] = member.Clone()
		}
		g.mu.RUnlock()
		if len(members) > 0 {
			snapshot[names[i]] = members
		}
	}
	return snapshot
}

func (s *GroupStore) GroupCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

// group finds or lazily creates a group shard.
func (s *GroupStore) group(name string) *memberGroup {
	s.mu.RLock()
	g, ok := s.groups[name]
	s.mu.RUnlock()
	if ok {
		return g
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok = s.groups[name]; ok {
		return g
	}
	s.log.Info(fmt.Sprintf("Creating group %s", name))
	g = &memberGroup{members: make(map[string]*domain.Member)}
	s.groups[name] = g
	return g
}
