package config

import (
	"fmt"
	"strings"
)

// The only two legal network targets.
const (
	LocalURL   = "http://127.0.0.1:4943"
	MainnetURL = "https://ic0.app"
)

// Endpoint pairs a network URL with its trust-bootstrap policy.
type Endpoint struct {
	URL                   string
	RequireTrustBootstrap bool
}

// EndpointFor maps an environment tag to its endpoint. Total over
// {local, prod}; anything else is a configuration error carrying the
// offending tag, never a silent fallback.
func EndpointFor(environment string) (Endpoint, error) {
	switch environment {
	case EnvLocal:
		return Endpoint{URL: LocalURL, RequireTrustBootstrap: true}, nil
	case EnvProd:
		return Endpoint{URL: MainnetURL, RequireTrustBootstrap: false}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidEnvironment, environment)
	}
}

// IsLoopback reports whether a URL names the local development network.
func IsLoopback(url string) bool {
	return strings.Contains(url, "127.0.0.1") || strings.Contains(url, "localhost")
}

// EndpointForURL builds an endpoint for a raw URL, deriving the
// trust-bootstrap policy from its loopback marker. Only the fixed
// local/production pair is legal in deployment; this exists for harnesses
// that stand in for the local network.
func EndpointForURL(url string) Endpoint {
	return Endpoint{URL: url, RequireTrustBootstrap: IsLoopback(url)}
}
