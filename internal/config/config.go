// Package config resolves which network to talk to and which two canisters
// to address. Resolution performs no I/O beyond reading the process
// environment; identity strings pass through unvalidated, the client
// validates them at construction.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment lookup keys, all externally supplied.
const (
	EnvKeyDeployment = "DEPLOYMENT_ENV"
	EnvKeyCounterID  = "COUNTER_CANISTER_ID"
	EnvKeyCallerID   = "CALLER_CANISTER_ID"
)

// The two legal environment tags.
const (
	EnvLocal = "local"
	EnvProd  = "prod"
)

var (
	ErrInvalidEnvironment = errors.New("config: invalid deployment environment")
	ErrMissingTarget      = errors.New("config: missing canister id")
)

// Settings is the resolved {environment, counter id, caller id} triple.
type Settings struct {
	Environment string
	CounterID   string
	RelayID     string
}

// Resolver produces Settings. The hosting layer picks an implementation:
// explicit inputs or environment lookup.
type Resolver interface {
	Resolve() (Settings, error)
}

// Explicit passes its three values through verbatim.
type Explicit struct {
	Environment string
	CounterID   string
	RelayID     string
}

func (r Explicit) Resolve() (Settings, error) {
	return Settings(r), nil
}

// FromEnv looks the triple up in the process environment. A missing
// canister id is fatal here, before any connection is opened; a missing
// environment tag defaults to local.
type FromEnv struct{}

func (FromEnv) Resolve() (Settings, error) {
	var raw struct {
		Environment string `env:"DEPLOYMENT_ENV" envDefault:"local"`
		CounterID   string `env:"COUNTER_CANISTER_ID"`
		RelayID     string `env:"CALLER_CANISTER_ID"`
	}
	if err := env.Parse(&raw); err != nil {
		return Settings{}, fmt.Errorf("config: environment lookup: %w", err)
	}
	if raw.CounterID == "" {
		return Settings{}, fmt.Errorf("%w: %s", ErrMissingTarget, EnvKeyCounterID)
	}
	if raw.RelayID == "" {
		return Settings{}, fmt.Errorf("%w: %s", ErrMissingTarget, EnvKeyCallerID)
	}
	return Settings{
		Environment: raw.Environment,
		CounterID:   raw.CounterID,
		RelayID:     raw.RelayID,
	}, nil
}

// LocalDefaults is the canned local development pair. Only explicit
// bootstrap call sites use it; lookup failure never falls back here.
func LocalDefaults() Settings {
	return Settings{
		Environment: EnvLocal,
		CounterID:   "u6s2n-gx777-77774-qaaba-cai",
		RelayID:     "uxrrr-q7777-77774-qaaaq-cai",
	}
}

// MainnetDefaults is the canned production pair.
func MainnetDefaults() Settings {
	return Settings{
		Environment: EnvProd,
		CounterID:   "rdmx6-jaaaa-aaaaa-aaadq-cai",
		RelayID:     "rrkah-fqaaa-aaaaa-aaaaq-cai",
	}
}
