package engine

import (
	"os"
	"strconv"
	"time"

	"github.com/dshills/blueprint-go/obs"
)

// defaultEmitter is a stdout text LogEmitter, so a run is observable
// without any wiring.
func defaultEmitter() obs.Emitter {
	return obs.NewLogEmitter(os.Stdout, false)
}

// Options configures an Engine. Fields start from the
// COMPLETER_TIMEOUT_MS / TOOL_TIMEOUT_MS / STEP_LIMIT /
// COLLEAGUES_THRESHOLD / COLLEAGUES_MAX_DEPTH environment variables, or
// the documented defaults when a variable is unset or unparsable; each
// Option then overwrites its field with the value it is given.
type Options struct {
	CompleterTimeout    time.Duration
	ToolTimeout         time.Duration
	StepLimit           int
	ColleaguesThreshold float64
	ColleaguesMaxDepth  int
	GuardedTools        []string
	Emitter             obs.Emitter
	Metrics             *obs.Metrics
}

// Option is a functional option over Options.
type Option func(*Options)

// WithStepLimit overrides the global transition ceiling.
func WithStepLimit(n int) Option {
	return func(o *Options) { o.StepLimit = n }
}

// WithGuardedTools overrides the guarded-tool set.
func WithGuardedTools(names []string) Option {
	return func(o *Options) { o.GuardedTools = names }
}

// WithColleaguesThreshold overrides the Colleagues accept threshold.
func WithColleaguesThreshold(v float64) Option {
	return func(o *Options) { o.ColleaguesThreshold = v }
}

// WithColleaguesMaxDepth overrides the Colleagues max iteration depth.
func WithColleaguesMaxDepth(n int) Option {
	return func(o *Options) { o.ColleaguesMaxDepth = n }
}

// WithToolTimeout overrides the per-tool invocation deadline.
func WithToolTimeout(d time.Duration) Option {
	return func(o *Options) { o.ToolTimeout = d }
}

// WithCompleterTimeout overrides the deadline applied to the Synthesizer's
// Completer call (the Reviewer's calls carry no per-call deadline).
func WithCompleterTimeout(d time.Duration) Option {
	return func(o *Options) { o.CompleterTimeout = d }
}

// WithEmitter overrides the ambient observability sink (default: a text
// LogEmitter on stdout).
func WithEmitter(e obs.Emitter) Option {
	return func(o *Options) { o.Emitter = e }
}

// WithMetrics attaches a Prometheus metrics collector (default: none).
func WithMetrics(m *obs.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

const (
	defaultStepLimit = 32
)

func defaultOptions() Options {
	return Options{
		CompleterTimeout:    envDuration("COMPLETER_TIMEOUT_MS", 30*time.Second),
		ToolTimeout:         envDuration("TOOL_TIMEOUT_MS", 60*time.Second),
		StepLimit:           envInt("STEP_LIMIT", defaultStepLimit),
		ColleaguesThreshold: envFloat("COLLEAGUES_THRESHOLD", 7.0),
		ColleaguesMaxDepth:  envInt("COLLEAGUES_MAX_DEPTH", 1),
		Emitter:             defaultEmitter(),
	}
}

func resolveOptions(opts []Option) Options {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
