// Package kafkaconsumer carries invalidation triggers over kafka. It
// is an optional transport for the trigger enum, feature-flagged in
// config; the invalidator itself never depends on it.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/openfuelmap/fuelgrid/internal/invalidation"
)

// Runner executes one parsed trigger. Satisfied by
// *invalidation.Invalidator.
type Runner interface {
	Run(ctx context.Context, t invalidation.Trigger) (int, error)
}

type Consumer struct {
	cfg    Config
	logger zerolog.Logger
	runner Runner
	dedupe *versionDedupe
}

func New(cfg Config, logger zerolog.Logger, runner Runner) *Consumer {
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		runner: runner,
		dedupe: newVersionDedupe(cfg.DedupeSize),
	}
}

// Start consumes trigger events until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.runner == nil {
		return errors.New("kafkaconsumer: missing runner")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info().
		Strs("brokers", c.cfg.Brokers).
		Str("topic", c.cfg.Topic).
		Str("group", c.cfg.GroupID).
		Msg("kafka invalidation consumer starting")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("kafka invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error().Err(err).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single trigger message. Malformed and replayed
// messages are dropped without failing the consumer group.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.Error().Err(err).
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("trigger decode failed")
		return fmt.Errorf("json decode: %w", err)
	}
	if err := ev.Validate(); err != nil {
		c.logger.Warn().Err(err).Msg("invalid trigger event dropped")
		return nil
	}
	if !c.dedupe.shouldApply(ev.Source, ev.Seq) {
		c.logger.Debug().
			Str("source", ev.Source).
			Uint64("seq", ev.Seq).
			Msg("replayed trigger dropped")
		return nil
	}

	trigger, err := invalidation.ParseTrigger(ev.Trigger)
	if err != nil {
		return nil
	}
	removed, err := c.runner.Run(ctx, trigger)
	if err != nil {
		return fmt.Errorf("run trigger %s: %w", trigger, err)
	}
	c.logger.Info().
		Str("trigger", string(trigger)).
		Str("source", ev.Source).
		Int("removed", removed).
		Msg("trigger applied")
	return nil
}

type messageProcessor func(context.Context, *sarama.ConsumerMessage) error

type groupHandler struct {
	process messageProcessor
}

func (h *groupHandler) Setup(s sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(s sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("claim context done: %w", ctx.Err())
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(ctx, msg); err != nil {
				return fmt.Errorf("process failed (topic=%s, part=%d, off=%d): %w",
					msg.Topic, msg.Partition, msg.Offset, err)
			}
			sess.MarkMessage(msg, "")
		}
	}
}
