package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/config"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/counter"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/logging"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "counterd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr = flag.String("listen", ":9000", "HTTP listen address")
		configPath = flag.String("config", "", "optional TOML config path; env vars otherwise")
		origins    = flag.String("allow-origins", "", "comma-separated CORS origins")
	)
	flag.Parse()

	logger := logging.ConfigureRuntime("counterd")

	var resolver config.Resolver = config.FromEnv{}
	if *configPath != "" {
		resolver = config.FromFile{Path: *configPath}
	}
	settings, err := resolver.Resolve()
	if err != nil {
		return err
	}
	endpoint, err := config.EndpointFor(settings.Environment)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := counter.New(ctx, counter.Config{
		Endpoint:  endpoint,
		CounterID: settings.CounterID,
		RelayID:   settings.RelayID,
		Logger:    &logger,
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("environment", settings.Environment).
		Str("endpoint", endpoint.URL).
		Str("counter_canister_id", settings.CounterID).
		Str("caller_canister_id", settings.RelayID).
		Msg("counter client ready")

	srvCfg := server.Config{ListenAddr: *listenAddr}
	if *origins != "" {
		srvCfg.AllowOrigins = strings.Split(*origins, ",")
	}

	err = server.New(srvCfg, client, logger).Run(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
