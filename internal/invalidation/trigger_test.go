package invalidation

import (
	"testing"

	"github.com/openfuelmap/fuelgrid/internal/remotecache"
)

func TestParseTrigger(t *testing.T) {
	for _, s := range []string{"scheduled-update", "manual-refresh", "cleanup"} {
		if _, err := ParseTrigger(s); err != nil {
			t.Fatalf("%q should parse: %v", s, err)
		}
	}
	for _, s := range []string{"", "SCHEDULED-UPDATE", "refresh", "drop-everything"} {
		if _, err := ParseTrigger(s); err == nil {
			t.Fatalf("%q should be rejected", s)
		}
	}
}

func TestTriggerPrefixes(t *testing.T) {
	// scheduled updates must never touch the base dataset namespace
	for _, p := range TriggerScheduledUpdate.Prefixes() {
		if p == remotecache.RootPrefix() {
			t.Fatal("scheduled-update must not purge the whole namespace")
		}
	}
	got := TriggerManualRefresh.Prefixes()
	if len(got) != 1 || got[0] != remotecache.RootPrefix() {
		t.Fatalf("manual-refresh must purge the root namespace, got %v", got)
	}
}
