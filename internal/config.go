package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Port                 int           `env:"PORT,required=true"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=1s"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`

	// Expected client reporting cadence and how many missed beats a
	// member survives before eviction.
	UpdateInterval time.Duration `env:"UPDATE_INTERVAL,default=5s"`
	IdleFactor     int           `env:"IDLE_FACTOR,default=3"`

	DisableSocket bool `env:"DISABLE_SOCKET,default=false"`

	PersistenceEnabled bool          `env:"PERSISTENCE_ENABLED,default=false"`
	BadgerFilepath     string        `env:"BADGER_FILEPATH"`
	SnapshotInterval   time.Duration `env:"SNAPSHOT_INTERVAL,default=30s"`
}

// IdleWindow is how long a member may stay silent before the reaper
// evicts it.
func (c Config) IdleWindow() time.Duration {
	return c.UpdateInterval * time.Duration(c.IdleFactor)
}

func (c Config) Validate() error {
	if c.IdleFactor < 1 {
		return fmt.Errorf("IDLE_FACTOR must be at least 1, got %d", c.IdleFactor)
	}
	if c.PersistenceEnabled && c.BadgerFilepath == "" {
		return fmt.Errorf("BADGER_FILEPATH is required when PERSISTENCE_ENABLED is set")
	}
	return nil
}
