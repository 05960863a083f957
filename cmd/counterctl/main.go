// counterctl runs a single counter action from the command line:
//
//	counterctl [flags] get|increment|decrement|whoami|ping
//
// Targets resolve from flags first, then the optional TOML config, then
// environment variables.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/config"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/counter"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/identity"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "counterctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		environment = flag.String("env", "", "deployment environment: local or prod")
		counterID   = flag.String("counter", "", "counter canister principal")
		relayID     = flag.String("caller", "", "caller canister principal")
		configPath  = flag.String("config", "", "optional TOML config path")
		keyPath     = flag.String("identity", "", "optional Ed25519 private key (PKCS#8 PEM); anonymous otherwise")
		timeout     = flag.Duration("timeout", 2*time.Minute, "overall call deadline")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected exactly one action, got %d", flag.NArg())
	}
	command := flag.Arg(0)

	logger := logging.ConfigureRuntime("counterctl")

	settings, err := resolveSettings(*configPath, *environment, *counterID, *relayID)
	if err != nil {
		return err
	}
	endpoint, err := config.EndpointFor(settings.Environment)
	if err != nil {
		return err
	}

	var id identity.Identity
	if *keyPath != "" {
		id, err = loadIdentity(*keyPath)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := counter.New(ctx, counter.Config{
		Endpoint:  endpoint,
		CounterID: settings.CounterID,
		RelayID:   settings.RelayID,
		Identity:  id,
		Logger:    &logger,
	})
	if err != nil {
		return err
	}

	switch command {
	case "whoami":
		sender, err := client.WhoAmI()
		if err != nil {
			return err
		}
		counterP, relayP := client.Identities()
		fmt.Printf("sender:  %s\ncounter: %s\ncaller:  %s\n", sender, counterP, relayP)
		return nil
	case "ping":
		if err := client.Ping(ctx); err != nil {
			return err
		}
		fmt.Printf("%s is reachable\n", endpoint.URL)
		return nil
	}

	action, err := counter.ParseAction(command)
	if err != nil {
		return err
	}
	outcome := counter.NewDispatcher(client, &logger).Execute(ctx, action)
	if !outcome.Success {
		return fmt.Errorf("%s failed: %s", action, outcome.Error)
	}
	fmt.Println(outcome.Value)
	return nil
}

// resolveSettings layers flags over the file or environment resolver.
// Any flag that is set wins; the resolver fills the rest.
func resolveSettings(path, environment, counterID, relayID string) (config.Settings, error) {
	if environment != "" && counterID != "" && relayID != "" {
		return config.Explicit{
			Environment: environment,
			CounterID:   counterID,
			RelayID:     relayID,
		}.Resolve()
	}

	var resolver config.Resolver = config.FromEnv{}
	if path != "" {
		resolver = config.FromFile{Path: path}
	}
	settings, err := resolver.Resolve()
	if err != nil {
		return config.Settings{}, err
	}
	if environment != "" {
		settings.Environment = environment
	}
	if counterID != "" {
		settings.CounterID = counterID
	}
	if relayID != "" {
		settings.RelayID = relayID
	}
	return settings, nil
}

func loadIdentity(path string) (identity.Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("identity key %s: no PEM block", path)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("identity key %s: %w", path, err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("identity key %s: not an Ed25519 key", path)
	}
	return identity.Ed25519FromKey(priv)
}
