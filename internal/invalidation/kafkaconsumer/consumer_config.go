package kafkaconsumer

import (
	"strings"
	"time"

	"github.com/openfuelmap/fuelgrid/internal/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	DedupeSize          int
}

func FromAppConfig(cfg config.InvalidationCfg) Config {
	brokers := []string{}
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return Config{
		Brokers:          brokers,
		Topic:            cfg.Topic,
		GroupID:          cfg.GroupID,
		SessionTimeout:   10 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 60 * time.Second,
		DedupeSize:       4096,
	}
}
