// Package runtime holds the process-wide collaborators every coordination
// primitive in the cpo package can be handed explicitly: a clock, a
// metrics registry, a tracer, an event-hook bus, a logger, a debug
// registry, and resolved configuration.
//
// Bundling these into one explicit Runtime value threaded through
// constructors, rather than reaching for ambient globals, lets tests swap
// in a FakeClock or a private metrics registry without mutating shared
// process state.
package runtime

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"

	"github.com/gocpo/cpo/config"
	"github.com/gocpo/cpo/registry"
)

// Event is emitted on the Hooks bus for process lifecycle transitions.
type Event struct {
	Kind string // "process.started", "process.stopped", "process.exception"
	Name string
	Err  error
}

const (
	HookProcessStarted   hookz.Key = "process.started"
	HookProcessStopped   hookz.Key = "process.stopped"
	HookProcessException hookz.Key = "process.exception"
)

const (
	MetricProcessesStarted metricz.Key = "cpo_processes_started_total"
	MetricProcessesFailed  metricz.Key = "cpo_processes_failed_total"
	MetricChannelReads     metricz.Key = "cpo_channel_reads_total"
	MetricChannelWrites    metricz.Key = "cpo_channel_writes_total"
	MetricSemaphoreWaiters metricz.Key = "cpo_semaphore_waiters"
	MetricBarrierRounds    metricz.Key = "cpo_barrier_rounds_total"
)

const (
	SpanProcess tracez.Key = "cpo.process"
	SpanPar     tracez.Key = "cpo.par"
	SpanOrdered tracez.Key = "cpo.ordered"
)

const (
	TagProcessName tracez.Tag = "process.name"
	TagOutcome     tracez.Tag = "outcome"
)

// Runtime bundles the collaborators every part of the cpo package can
// optionally be handed. A nil *Runtime is valid everywhere it's accepted
// and is replaced by a shared Runtime built once by Default().
type Runtime struct {
	Clock    clockz.Clock
	Metrics  *metricz.Registry
	Tracer   *tracez.Tracer
	Hooks    *hookz.Hooks[Event]
	Logger   zerolog.Logger
	Registry *registry.Registry
	Config   *config.Config
}

// New builds a Runtime from cfg, tuning GOMAXPROCS/GOMEMLIMIT to the
// environment when cfg.PoolKind is adaptive.
func New(cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	rt := &Runtime{
		Clock:    clockz.RealClock,
		Metrics:  metricz.NewRegistry(),
		Tracer:   tracez.New(),
		Hooks:    hookz.New[Event](),
		Logger:   zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
		Registry: registry.New(),
		Config:   cfg,
	}
	rt.Metrics.Counter(MetricProcessesStarted)
	rt.Metrics.Counter(MetricProcessesFailed)
	rt.Metrics.Counter(MetricChannelReads)
	rt.Metrics.Counter(MetricChannelWrites)
	rt.Metrics.Gauge(MetricSemaphoreWaiters)
	rt.Metrics.Counter(MetricBarrierRounds)

	if cfg.PoolKind == config.PoolAdaptive {
		if err := tuneToEnvironment(); err != nil {
			rt.Logger.Warn().Err(err).Msg("runtime: adaptive pool tuning failed, continuing with defaults")
		}
	}
	return rt, nil
}

// Default returns a Runtime built from config.Default(). It never returns
// an error since the default configuration is always valid.
func Default() *Runtime {
	rt, err := New(config.Default())
	if err != nil {
		panic(fmt.Sprintf("runtime: default config must be valid: %v", err))
	}
	return rt
}

// fallback returns rt if non-nil, else a process-wide lazily built default
// Runtime, so callers get an explicit value with a convenience default
// rather than a hidden global.
var (
	defaultOnce sync.Once
	defaultRT   *Runtime
)

func fallback(rt *Runtime) *Runtime {
	if rt != nil {
		return rt
	}
	defaultOnce.Do(func() { defaultRT = Default() })
	return defaultRT
}

// Fallback exposes fallback to other cpo packages (process/channel
// constructors accepting an optional *Runtime).
func Fallback(rt *Runtime) *Runtime { return fallback(rt) }
