// Package logging configures the process-wide zerolog logger once, with a
// runtime profile for the binaries and a quieter-by-default test profile,
// both overridable from the environment.
package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "COUNTER_LOG_LEVEL"
	EnvLogTimestamp = "COUNTER_LOG_TIMESTAMP"
	EnvLogNoColor   = "COUNTER_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

func ConfigureRuntime(app string) zerolog.Logger {
	return Configure(ProfileRuntime, app)
}

func ConfigureTests() zerolog.Logger {
	return Configure(ProfileTest, "test")
}

// Configure sets the global logger once and returns it. Later calls return
// the logger already installed.
func Configure(profile Profile, app string) zerolog.Logger {
	configureOnce.Do(func() {
		level := zerolog.InfoLevel
		timestamp := true
		noColor := false
		if profile == ProfileTest {
			level = zerolog.DebugLevel
			timestamp = false
		}
		if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}
		if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
			timestamp = v
		}
		if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
			noColor = v
		}

		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}
		ctx := zerolog.New(output).Level(level).With().Str("app", app)
		if timestamp {
			ctx = ctx.Timestamp()
		}
		log.Logger = ctx.Logger()
	})
	return log.Logger
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
