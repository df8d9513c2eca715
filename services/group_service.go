package services

import (
	"gimp-server/contract"
	"gimp-server/domain"
	"gimp-server/runtime"
)

type IGroupService interface {
	SubmitUpdate(group string, originSession string, p domain.UpdatePayload) (domain.MemberView, error)
	GetGroup(group string) (map[string]domain.MemberView, error)
	Join(sessionID string, group string, sink contract.EventSink)
	Leave(sessionID string, group string)
	Stats() runtime.Stats
}

// GroupService is the transport-facing facade over the orchestrator.
type GroupService struct {
	orchestrator *runtime.Orchestrator
}

func NewGroupService(o *runtime.Orchestrator) *GroupService {
	return &GroupService{orchestrator: o}
}

func (s *GroupService) SubmitUpdate(group string, originSession string, p domain.UpdatePayload) (domain.MemberView, error) {
	return s.orchestrator.ApplyUpdate(group, originSession, p)
}

func (s *GroupService) GetGroup(group string) (map[string]domain.MemberView, error) {
	return s.orchestrator.GetGroup(group)
}

func (s *GroupService) Join(sessionID string, group string, sink contract.EventSink) {
	s.orchestrator.Join(sessionID, group, sink)
}

func (s *GroupService) Leave(sessionID string, group string) {
	s.orchestrator.Leave(sessionID, group)
}

func (s *GroupService) Stats() runtime.Stats {
	return s.orchestrator.Stats()
}
