package contract

import (
	"context"
	"reflect"

	"gimp-server/domain"
	"gimp-server/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks live subscriptions: which connections belong to
// which room. It knows nothing about member state.
type IRegistry interface {
	Subscribe(sessionID string, group string, sink EventSink)
	Unsubscribe(sessionID string, group string)
	SinksForGroup(group string, exceptSession string) []EventSink
	Counts() (rooms, sessions int)
}

// IGroupStore owns all member state. The relay and the persistence
// gateway only ever read snapshots from it.
type IGroupStore interface {
	ApplyUpdate(group string, p domain.UpdatePayload) (domain.MemberView, error)
	GetGroup(group string) (map[string]domain.MemberView, error)
	RemoveMember(group, member string) bool
	Snapshot() domain.RegistrySnapshot
	GroupCount() int
}

type ISnapshotRepository interface {
	Load() (domain.RegistrySnapshot, error)
	Save(snapshot domain.RegistrySnapshot) error
}
