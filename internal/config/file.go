package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// File holds the CLI config file shape.
type File struct {
	Environment string `toml:"environment"`
	CounterID   string `toml:"counter_canister_id"`
	RelayID     string `toml:"caller_canister_id"`
}

// FromFile resolves the triple from a TOML file.
type FromFile struct {
	Path string
}

func (r FromFile) Resolve() (Settings, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: load failed (%s): %w", r.Path, err)
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("config: parse failed (%s): %w", r.Path, err)
	}
	if f.Environment == "" {
		f.Environment = EnvLocal
	}
	if strings.TrimSpace(f.CounterID) == "" {
		return Settings{}, fmt.Errorf("%w: counter_canister_id in %s", ErrMissingTarget, r.Path)
	}
	if strings.TrimSpace(f.RelayID) == "" {
		return Settings{}, fmt.Errorf("%w: caller_canister_id in %s", ErrMissingTarget, r.Path)
	}
	return Settings{
		Environment: f.Environment,
		CounterID:   f.CounterID,
		RelayID:     f.RelayID,
	}, nil
}
