package invalidation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfuelmap/fuelgrid/internal/observability"
	"github.com/openfuelmap/fuelgrid/internal/remotecache"
)

// expiryJudge decides whether a stored envelope is past its TTL.
// Satisfied by *remotecache.Manager.
type expiryJudge interface {
	Expired(raw []byte) bool
}

type Invalidator struct {
	store     remotecache.Store
	judge     expiryJudge
	logger    zerolog.Logger
	opTimeout time.Duration
}

func New(store remotecache.Store, judge expiryJudge, logger zerolog.Logger, opTimeout time.Duration) *Invalidator {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Invalidator{store: store, judge: judge, logger: logger, opTimeout: opTimeout}
}

// Run executes one trigger and returns the number of keys removed.
func (i *Invalidator) Run(ctx context.Context, t Trigger) (int, error) {
	start := time.Now()
	removed, err := i.run(ctx, t)
	observability.ObserveInvalidation(string(t), err)
	if err != nil {
		i.logger.Error().Err(err).Str("trigger", string(t)).Msg("invalidation failed")
		return removed, err
	}
	i.logger.Info().
		Str("trigger", string(t)).
		Int("removed", removed).
		Dur("dur", time.Since(start)).
		Msg("invalidation complete")
	return removed, nil
}

func (i *Invalidator) run(ctx context.Context, t Trigger) (int, error) {
	opCtx, cancel := context.WithTimeout(ctx, i.opTimeout)
	defer cancel()

	switch t {
	case TriggerScheduledUpdate, TriggerManualRefresh:
		removed := 0
		for _, prefix := range t.Prefixes() {
			keys, err := i.store.List(opCtx, prefix)
			if err != nil {
				return removed, fmt.Errorf("list %q: %w", prefix, err)
			}
			if len(keys) == 0 {
				continue
			}
			if err := i.store.Delete(opCtx, keys...); err != nil {
				return removed, fmt.Errorf("delete %d keys under %q: %w", len(keys), prefix, err)
			}
			removed += len(keys)
		}
		return removed, nil

	case TriggerCleanup:
		return i.cleanup(opCtx)

	default:
		return 0, fmt.Errorf("unknown trigger %q", t)
	}
}

// cleanup inspects each entry and removes only those expired by their
// envelope metadata. Unreadable entries count as expired.
func (i *Invalidator) cleanup(ctx context.Context) (int, error) {
	keys, err := i.store.List(ctx, remotecache.RootPrefix())
	if err != nil {
		return 0, fmt.Errorf("list for cleanup: %w", err)
	}

	var stale []string
	for _, key := range keys {
		raw, ok, err := i.store.Get(ctx, key)
		if err != nil {
			// an unreadable store is a skipped pass, not a purge
			return 0, fmt.Errorf("get %q: %w", key, err)
		}
		if !ok {
			continue // raced with native expiry
		}
		if i.judge.Expired(raw) {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := i.store.Delete(ctx, stale...); err != nil {
		return 0, fmt.Errorf("delete %d stale keys: %w", len(stale), err)
	}
	return len(stale), nil
}
