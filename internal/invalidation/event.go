package invalidation

import (
	"fmt"
	"strings"
	"time"
)

// Event is the wire form of a trigger arriving over the optional kafka
// transport. Seq orders events per source so replays are dropped.
type Event struct {
	Version int       `json:"version"`
	Trigger string    `json:"trigger"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
	Seq     uint64    `json:"seq"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	if _, err := ParseTrigger(e.Trigger); err != nil {
		return err
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	if strings.TrimSpace(e.Source) == "" {
		return fmt.Errorf("source is required")
	}
	return nil
}
