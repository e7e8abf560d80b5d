package remotecache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
)

// envelope wraps every stored payload so compression stays transparent
// to readers and cleanup can judge staleness from metadata alone.
type envelope struct {
	Compressed bool      `json:"compressed"`
	StoredAt   time.Time `json:"stored_at"`
	TTLSeconds int64     `json:"ttl_seconds"`
	Payload    []byte    `json:"payload"`
}

// Freshness carries the cache headers the HTTP layer forwards.
type Freshness struct {
	Hit    bool
	Age    time.Duration
	MaxAge time.Duration
}

func (f Freshness) CacheControl() string {
	remain := f.MaxAge - f.Age
	if remain < 0 {
		remain = 0
	}
	return fmt.Sprintf("public, max-age=%d", int(remain.Seconds()))
}

func (f Freshness) XCache() string {
	if f.Hit {
		return "HIT"
	}
	return "MISS"
}

type Config struct {
	OpTimeout        time.Duration
	TTLDefault       time.Duration
	TTLWarm          time.Duration
	CompressMinBytes int
}

type Manager struct {
	store  Store
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

func New(store Store, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if cfg.TTLDefault <= 0 {
		cfg.TTLDefault = 10 * time.Minute
	}
	if cfg.TTLWarm <= 0 || cfg.TTLWarm > cfg.TTLDefault {
		// warm regions trade recomputation for freshness
		cfg.TTLWarm = cfg.TTLDefault / 2
	}
	if cfg.CompressMinBytes <= 0 {
		cfg.CompressMinBytes = 1024
	}
	return &Manager{store: store, cfg: cfg, logger: logger, now: time.Now}
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.OpTimeout)
}

// Get reads and unwraps a payload. Store errors, timeouts and decode
// failures are all reported as misses: corruption never propagates to
// the client, the caller just recomputes.
func (m *Manager) Get(ctx context.Context, key string) ([]byte, Freshness, bool) {
	opCtx, cancel := m.withTimeout(ctx)
	defer cancel()

	raw, ok, err := m.store.Get(opCtx, key)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("store get failed, treating as miss")
		return nil, Freshness{}, false
	}
	if !ok {
		return nil, Freshness{}, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("corrupt cache envelope, treating as miss")
		return nil, Freshness{}, false
	}
	payload := env.Payload
	if env.Compressed {
		decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(env.Payload)))
		if err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("decompress failed, treating as miss")
			return nil, Freshness{}, false
		}
		payload = decoded
	}

	fresh := Freshness{
		Hit:    true,
		Age:    m.now().Sub(env.StoredAt),
		MaxAge: time.Duration(env.TTLSeconds) * time.Second,
	}
	return payload, fresh, true
}

// Put wraps, optionally compresses, and writes a payload with the given
// TTL. A zero ttl uses the default.
func (m *Manager) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.cfg.TTLDefault
	}
	env := envelope{
		StoredAt:   m.now(),
		TTLSeconds: int64(ttl.Seconds()),
		Payload:    payload,
	}
	if len(payload) >= m.cfg.CompressMinBytes {
		var buf bytes.Buffer
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(payload); err == nil && w.Close() == nil && buf.Len() < len(payload) {
			env.Compressed = true
			env.Payload = append([]byte(nil), buf.Bytes()...)
		}
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope %q: %w", key, err)
	}

	opCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := m.store.Put(opCtx, key, raw, ttl); err != nil {
		return fmt.Errorf("store put %q: %w", key, err)
	}
	return nil
}

// Expired reports whether a stored envelope is past its TTL by its own
// metadata, for cleanup sweeps over stores without native expiry.
func (m *Manager) Expired(raw []byte) bool {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// unreadable entries count as expired so cleanup removes them
		return true
	}
	ttl := time.Duration(env.TTLSeconds) * time.Second
	return ttl > 0 && m.now().Sub(env.StoredAt) >= ttl
}
