package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Driver  string
	Topic   string
	Brokers string
	GroupID string
}

type Config struct {
	Addr     string
	LogLevel string

	RedisAddr      string
	CacheOpTimeout time.Duration

	TileSize       float64
	MaxEntries     int
	CacheExpiry    time.Duration
	MaxMemoryBytes int64
	SnapshotPath   string
	SnapshotMaxAge time.Duration

	RemoteTTLDefault time.Duration
	RemoteTTLWarm    time.Duration
	CompressMinBytes int

	MinSampleSize int
	PriceMargin   float64

	Invalidation InvalidationCfg
}

func FromEnv() Config {
	ttlDefault := getduration("REMOTE_TTL_DEFAULT", 10*time.Minute)

	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		TileSize:       getfloat("TILE_SIZE_DEGREES", 0.25),
		MaxEntries:     getint("TILE_CACHE_MAX_ENTRIES", 100),
		CacheExpiry:    getduration("TILE_CACHE_EXPIRY", 30*time.Minute),
		MaxMemoryBytes: int64(getint("TILE_CACHE_MAX_MEMORY_BYTES", 50<<20)),
		SnapshotPath:   getenv("TILE_CACHE_SNAPSHOT_PATH", ""),
		SnapshotMaxAge: getduration("TILE_CACHE_SNAPSHOT_MAX_AGE", time.Hour),

		RemoteTTLDefault: ttlDefault,
		RemoteTTLWarm:    getduration("REMOTE_TTL_WARM", ttlDefault/2),
		CompressMinBytes: getint("REMOTE_COMPRESS_MIN_BYTES", 1024),

		MinSampleSize: getint("PRICE_MIN_SAMPLE_SIZE", 10),
		PriceMargin:   getfloat("PRICE_MARGIN_PENCE", 5.0),

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Driver:  getenv("INVALIDATION_DRIVER", "none"),
			Topic:   getenv("KAFKA_TOPIC", "fuel-cache-invalidation"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "cache-invalidator"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
