package model

import "time"

// Account is one resolved entry from the Credential Registry document
// (spec.md §3, §4.1, §6), immutable for the lifetime of a run. Entries
// whose AccessKey is empty or ADD_-prefixed are filtered by the registry
// loader before ever reaching this shape.
type Account struct {
	Name      string
	AccountID string
	Email     string
	AccessKey string
	SecretKey string

	// Regions is this account's default region set, resolved from
	// user_settings.user_regions at load time (spec.md §6).
	Regions []string
}

// RunConfig is the resolved set of CLI flags/env/config-file values for one
// invocation, bound by cmd/root.go's viper setup and threaded explicitly
// from there on — this is what replaces package-level globals the teacher's
// own LLM-agent layer used (DESIGN NOTES §9).
type RunConfig struct {
	ConfigPath  string
	Accounts    []string // empty means "all accounts in the registry"
	Regions     []string // empty means "each account's configured default regions"
	Concurrency int
	DryRun      bool
	Yes         bool
	EmptyBuckets bool
	RunUser     string
}

// RunContext threads a run's identity and cancellation concerns through
// every component instead of relying on globals or ambient clocks: current
// user, start time, and the resolved RunConfig.
type RunContext struct {
	Config    RunConfig
	StartedAt time.Time
}

func NewRunContext(cfg RunConfig, startedAt time.Time) *RunContext {
	return &RunContext{Config: cfg, StartedAt: startedAt}
}
