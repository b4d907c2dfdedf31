package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teemow/inboxagent/internal/agent"
)

// ErrNotFound is returned by Get for unknown or expired run ids.
var ErrNotFound = errors.New("transcript not found")

// Storage backend types.
const (
	StorageTypeMemory = "memory"
	StorageTypeValkey = "valkey"
	StorageTypeNone   = "none"
)

// Defaults for Config.
const (
	DefaultMaxRecords = 100
	DefaultTTL        = 24 * time.Hour
	DefaultKeyPrefix  = "inboxagent:"
)

// Record is the stored form of one run.
type Record struct {
	RunID     string          `json:"run_id"`
	Input     string          `json:"input"`
	Answer    string          `json:"answer,omitempty"`
	State     string          `json:"state"`
	Steps     int             `json:"steps"`
	Error     string          `json:"error,omitempty"`
	Messages  []agent.Message `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRecord builds a Record from a finished run. runErr may be nil.
func NewRecord(input string, out *agent.Outcome, runErr error) Record {
	r := Record{
		RunID:     out.RunID,
		Input:     input,
		Answer:    out.Answer,
		State:     out.State.String(),
		Steps:     out.Steps,
		Messages:  out.Messages,
		CreatedAt: time.Now().UTC(),
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// Store saves and loads transcripts. Implementations are safe for
// concurrent use.
type Store interface {
	Save(ctx context.Context, r Record) error
	Get(ctx context.Context, runID string) (Record, error)

	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	Close() error
}

// Pinger is implemented by stores backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config selects and configures a Store.
type Config struct {
	// Type is the storage backend type: "memory", "valkey" or "none" (default: "memory")
	Type string

	MaxRecords int
	TTL        time.Duration

	Valkey ValkeyConfig
}

// ValkeyConfig configures the Valkey backend.
type ValkeyConfig struct {
	// URL is the Valkey server address (e.g., "valkey.namespace.svc:6379")
	URL        string
	Password   string
	TLSEnabled bool
	KeyPrefix  string
	DB         int
}

// New returns the Store described by cfg. It returns nil for type "none".
func New(cfg Config) (Store, error) {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	switch cfg.Type {
	case "", StorageTypeMemory:
		return NewMemoryStore(cfg.MaxRecords), nil
	case StorageTypeValkey:
		return NewValkeyStore(cfg.Valkey, cfg.MaxRecords, cfg.TTL)
	case StorageTypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid transcript storage type %q, must be one of: memory, valkey, none", cfg.Type)
	}
}
