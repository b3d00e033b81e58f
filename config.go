package uthread

import (
	"log/slog"
	"os"
	"time"
)

// levelTrace sits below slog.LevelDebug for the highest-volume event this
// package emits (one per preemption tick); it is never enabled by default.
const levelTrace = slog.Level(-8)

// Config holds the construction-time knobs for a Runtime. The runtime has no
// persisted or remote configuration (it has no wire protocol and no state
// that survives process exit), so options are applied once, at New.
type Config struct {
	// TickInterval is both the initial delay and the period of the
	// preemption timer, mirroring the source's itimerval where
	// it_value == it_interval == 1ms.
	TickInterval time.Duration

	// StackHint is the nominal per-coroutine stack size recorded on each
	// CoCtx for diagnostics; it is never an allocation ceiling, since Go
	// goroutine stacks grow on demand.
	StackHint int

	// Logger receives structured events for thread/semaphore lifecycle. A
	// nil Logger falls back to slog.Default().
	Logger *slog.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithTickInterval overrides the preemption timer's period.
func WithTickInterval(d time.Duration) Option {
	return func(c *Config) { c.TickInterval = d }
}

// WithStackHint overrides the diagnostic stack-size hint.
func WithStackHint(bytes int) Option {
	return func(c *Config) { c.StackHint = bytes }
}

// WithLogger overrides the structured logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func defaultConfig() Config {
	return Config{
		TickInterval: time.Millisecond,
		StackHint:    defaultStackHint,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
}
