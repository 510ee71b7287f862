// Package config resolves process-wide configuration once at startup into
// an explicit value instead of ambient global state, so callers can pass
// it around and construct independent instances in tests.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PoolKind selects how goroutine "pool" sizing hints are derived. Go has no
// user-level thread pool to size directly, so PoolKind instead governs
// whether runtime.Runtime tunes GOMAXPROCS/GOMEMLIMIT to the environment
// (Adaptive) or leaves them alone.
type PoolKind string

const (
	PoolSized    PoolKind = "sized"
	PoolAdaptive PoolKind = "adaptive"
	PoolCached   PoolKind = "cached"
	PoolUnpooled PoolKind = "unpooled"
)

// Config is the resolved, immutable configuration for one process.
type Config struct {
	DebugPort      int
	Suppress       []string
	PoolKind       PoolKind
	PoolMax        int
	PoolStackBytes int
	LogSize        int
	LogMask        uint32
}

// Default returns the configuration used when no environment override is
// present.
func Default() *Config {
	return &Config{
		DebugPort:      0,
		PoolKind:       PoolAdaptive,
		PoolMax:        0,
		PoolStackBytes: 0,
		LogSize:        1024,
		LogMask:        0xFFFFFFFF,
	}
}

// Load resolves configuration from environment variables, falling back to
// Default for anything unset. It returns an error on a malformed value
// rather than silently ignoring it.
func Load() (*Config, error) {
	c := Default()
	if v, ok := os.LookupEnv("CPO_DEBUG_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: CPO_DEBUG_PORT: %w", err)
		}
		c.DebugPort = n
	}
	if v, ok := os.LookupEnv("CPO_SUPPRESS"); ok && v != "" {
		c.Suppress = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("CPO_POOL_KIND"); ok {
		switch PoolKind(v) {
		case PoolSized, PoolAdaptive, PoolCached, PoolUnpooled:
			c.PoolKind = PoolKind(v)
		default:
			return nil, fmt.Errorf("config: CPO_POOL_KIND: unknown kind %q", v)
		}
	}
	if v, ok := os.LookupEnv("CPO_POOL_MAX"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: CPO_POOL_MAX: %w", err)
		}
		c.PoolMax = n
	}
	if v, ok := os.LookupEnv("CPO_POOL_STACK_BYTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: CPO_POOL_STACK_BYTES: %w", err)
		}
		c.PoolStackBytes = n
	}
	if v, ok := os.LookupEnv("CPO_LOG_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: CPO_LOG_SIZE: %w", err)
		}
		c.LogSize = n
	}
	if v, ok := os.LookupEnv("CPO_LOG_MASK"); ok {
		n, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("config: CPO_LOG_MASK: %w", err)
		}
		c.LogMask = uint32(n)
	}
	return c, nil
}

// Suppressed reports whether the named warning/log category has been
// suppressed via configuration.
func (c *Config) Suppressed(category string) bool {
	for _, s := range c.Suppress {
		if s == category {
			return true
		}
	}
	return false
}
