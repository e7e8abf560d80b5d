package invalidation

import (
	"testing"
	"time"
)

func validEvent() Event {
	return Event{Version: 1, Trigger: "cleanup", TS: time.Now(), Source: "scheduler", Seq: 1}
}

func TestEventValidate(t *testing.T) {
	if err := validEvent().Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Event)
	}{
		{"bad version", func(e *Event) { e.Version = 2 }},
		{"unknown trigger", func(e *Event) { e.Trigger = "nuke" }},
		{"zero ts", func(e *Event) { e.TS = time.Time{} }},
		{"blank source", func(e *Event) { e.Source = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := validEvent()
			tc.mutate(&ev)
			if err := ev.Validate(); err == nil {
				t.Fatal("want validation error")
			}
		})
	}
}
