// Package invalidation purges backing-store entries on defined
// triggers. Each trigger maps to an explicit list of key prefixes so
// the dependency edges are auditable rather than hidden behind runtime
// pattern matching.
package invalidation

import (
	"fmt"

	"github.com/openfuelmap/fuelgrid/internal/remotecache"
)

type Trigger string

const (
	// TriggerScheduledUpdate runs after a feed refresh: derived
	// bbox/region entries are purged, the base dataset snapshot stays.
	TriggerScheduledUpdate Trigger = "scheduled-update"
	// TriggerManualRefresh purges everything under the service
	// namespace.
	TriggerManualRefresh Trigger = "manual-refresh"
	// TriggerCleanup removes only entries expired by their own
	// envelope metadata.
	TriggerCleanup Trigger = "cleanup"
)

func ParseTrigger(s string) (Trigger, error) {
	switch Trigger(s) {
	case TriggerScheduledUpdate, TriggerManualRefresh, TriggerCleanup:
		return Trigger(s), nil
	default:
		return "", fmt.Errorf("unknown invalidation trigger %q", s)
	}
}

// Prefixes returns the key namespaces a trigger purges. Cleanup walks
// the whole namespace but deletes by expiry metadata, not wholesale.
func (t Trigger) Prefixes() []string {
	switch t {
	case TriggerScheduledUpdate:
		return []string{remotecache.BBoxPrefix()}
	case TriggerManualRefresh, TriggerCleanup:
		return []string{remotecache.RootPrefix()}
	default:
		return nil
	}
}
