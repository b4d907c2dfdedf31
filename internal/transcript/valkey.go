package transcript

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyStore keeps transcripts in Valkey. Each record is a JSON string
// under <prefix>transcript:<run id> with a TTL; a capped list under
// <prefix>transcripts holds the run ids, newest first.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	max    int
	ttl    time.Duration
}

// NewValkeyStore connects to the server described by cfg.
func NewValkeyStore(cfg ValkeyConfig, maxRecords int, ttl time.Duration) (*ValkeyStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("valkey URL is required for valkey transcript storage")
	}

	opt := valkey.ClientOption{
		InitAddress: []string{cfg.URL},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	}
	if cfg.TLSEnabled {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", cfg.URL, err)
	}
	return NewValkeyStoreWithClient(client, cfg.KeyPrefix, maxRecords, ttl), nil
}

// NewValkeyStoreWithClient wraps an existing client.
func NewValkeyStoreWithClient(client valkey.Client, prefix string, maxRecords int, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ValkeyStore{client: client, prefix: prefix, max: maxRecords, ttl: ttl}
}

func (s *ValkeyStore) recordKey(runID string) string {
	return s.prefix + "transcript:" + runID
}

func (s *ValkeyStore) indexKey() string {
	return s.prefix + "transcripts"
}

// Save stores r and records its run id in the index. Saving a run id again
// replaces its record and moves it to the head of the index.
func (s *ValkeyStore) Save(ctx context.Context, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode transcript %s: %w", r.RunID, err)
	}

	cmds := valkey.Commands{
		s.client.B().Set().Key(s.recordKey(r.RunID)).Value(string(data)).ExSeconds(int64(s.ttl / time.Second)).Build(),
		s.client.B().Lrem().Key(s.indexKey()).Count(0).Element(r.RunID).Build(),
		s.client.B().Lpush().Key(s.indexKey()).Element(r.RunID).Build(),
		s.client.B().Ltrim().Key(s.indexKey()).Start(0).Stop(int64(s.max - 1)).Build(),
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("failed to save transcript %s: %w", r.RunID, err)
		}
	}
	return nil
}

// Get returns the transcript of runID or ErrNotFound.
func (s *ValkeyStore) Get(ctx context.Context, runID string) (Record, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.recordKey(runID)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load transcript %s: %w", runID, err)
	}
	return decode(runID, data)
}

// Recent returns up to n transcripts, newest first. Expired entries that
// are still listed in the index are skipped.
func (s *ValkeyStore) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 || n > s.max {
		n = s.max
	}

	ids, err := s.client.Do(ctx, s.client.B().Lrange().Key(s.indexKey()).Start(0).Stop(int64(n-1)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return nil, fmt.Errorf("failed to load transcripts: %w", err)
	}

	out := make([]Record, 0, len(values))
	for i, v := range values {
		data, err := v.ToString()
		if valkey.IsValkeyNil(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load transcript %s: %w", ids[i], err)
		}
		r, err := decode(ids[i], data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Ping checks that the Valkey server answers.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close closes the client.
func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}

func decode(runID, data string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return Record{}, fmt.Errorf("failed to decode transcript %s: %w", runID, err)
	}
	return r, nil
}
