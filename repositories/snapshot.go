package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"gimp-server/domain"
	"gimp-server/errors"
)

// The whole registry is stored as one JSON document under a single
// key, so every Save is an atomic replace of the previous snapshot.
const snapshotKey = "registry:snapshot"

type SnapshotRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSnapshotRepository(db *badger.DB, log *slog.Logger) SnapshotRepository {
	return SnapshotRepository{db: db, log: log}
}

// Load reads the durable registry document. A missing document maps
// to ErrStorageUnavailable and an unparseable one to
// ErrStorageCorrupt; both are fatal at startup so the process never
// silently starts with an empty registry and masks data loss.
func (r SnapshotRepository) Load() (domain.RegistrySnapshot, error) {
	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: no document at %s", errors.ErrStorageUnavailable, snapshotKey)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err)
	}

	var snapshot domain.RegistrySnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorageCorrupt, err)
	}
	r.log.Info("Registry snapshot loaded", "groups", len(snapshot), "bytes", len(raw))
	return snapshot, nil
}

// Save replaces the durable document in a single transaction.
func (r SnapshotRepository) Save(snapshot domain.RegistrySnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), raw)
	})
}
