package kafkaconsumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/openfuelmap/fuelgrid/internal/config"
	"github.com/openfuelmap/fuelgrid/internal/invalidation"
)

func configFixture() config.InvalidationCfg {
	return config.InvalidationCfg{
		Enabled: true,
		Driver:  "kafka",
		Topic:   "fuel.invalidate",
		Brokers: "kafka-1:9092, kafka-2:9092,",
		GroupID: "fuelgrid",
	}
}

type recordingRunner struct {
	triggers []invalidation.Trigger
}

func (r *recordingRunner) Run(ctx context.Context, t invalidation.Trigger) (int, error) {
	r.triggers = append(r.triggers, t)
	return 1, nil
}

func message(t *testing.T, ev invalidation.Event) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "fuel.invalidate", Value: raw}
}

func newTestConsumer(runner Runner) *Consumer {
	return New(Config{Topic: "fuel.invalidate", DedupeSize: 16}, zerolog.Nop(), runner)
}

func TestProcessOneAppliesTrigger(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestConsumer(runner)

	ev := invalidation.Event{Version: 1, Trigger: "scheduled-update", TS: time.Now(), Source: "scheduler", Seq: 1}
	if err := c.ProcessOne(context.Background(), message(t, ev)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(runner.triggers) != 1 || runner.triggers[0] != invalidation.TriggerScheduledUpdate {
		t.Fatalf("runner got %v", runner.triggers)
	}
}

func TestProcessOneDropsReplays(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestConsumer(runner)

	ev := invalidation.Event{Version: 1, Trigger: "cleanup", TS: time.Now(), Source: "scheduler", Seq: 7}
	for i := 0; i < 3; i++ {
		if err := c.ProcessOne(context.Background(), message(t, ev)); err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
	}
	if len(runner.triggers) != 1 {
		t.Fatalf("replayed event applied %d times", len(runner.triggers))
	}

	// a later seq from the same source goes through
	ev.Seq = 8
	if err := c.ProcessOne(context.Background(), message(t, ev)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(runner.triggers) != 2 {
		t.Fatalf("newer seq not applied, runner got %v", runner.triggers)
	}
}

func TestProcessOneIndependentSources(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestConsumer(runner)

	for _, src := range []string{"scheduler", "ops-cli"} {
		ev := invalidation.Event{Version: 1, Trigger: "cleanup", TS: time.Now(), Source: src, Seq: 1}
		if err := c.ProcessOne(context.Background(), message(t, ev)); err != nil {
			t.Fatalf("process %s: %v", src, err)
		}
	}
	if len(runner.triggers) != 2 {
		t.Fatalf("sources must dedupe independently, runner got %v", runner.triggers)
	}
}

func TestProcessOneMalformedJSON(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestConsumer(runner)

	msg := &sarama.ConsumerMessage{Topic: "fuel.invalidate", Value: []byte("{not json")}
	if err := c.ProcessOne(context.Background(), msg); err == nil {
		t.Fatal("undecodable message must surface an error")
	}
	if len(runner.triggers) != 0 {
		t.Fatal("runner invoked for undecodable message")
	}
}

func TestProcessOneInvalidEventDropped(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestConsumer(runner)

	ev := invalidation.Event{Version: 1, Trigger: "nuke", TS: time.Now(), Source: "scheduler", Seq: 1}
	if err := c.ProcessOne(context.Background(), message(t, ev)); err != nil {
		t.Fatalf("invalid event must be dropped, not errored: %v", err)
	}
	if len(runner.triggers) != 0 {
		t.Fatal("runner invoked for invalid event")
	}
}

func TestFromAppConfigSplitsBrokers(t *testing.T) {
	cfg := FromAppConfig(configFixture())
	want := []string{"kafka-1:9092", "kafka-2:9092"}
	if len(cfg.Brokers) != len(want) {
		t.Fatalf("brokers = %v, want %v", cfg.Brokers, want)
	}
	for i := range want {
		if cfg.Brokers[i] != want[i] {
			t.Fatalf("brokers = %v, want %v", cfg.Brokers, want)
		}
	}
	if cfg.DedupeSize <= 0 || cfg.SessionTimeout <= 0 {
		t.Fatal("defaults not applied")
	}
}
