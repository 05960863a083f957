// Package counter is the typed gateway to the remote counter: it turns the
// three logical operations into signed update calls relayed through the
// caller canister, waits for finality, and decodes the two-armed result.
// One client is built per process and shared; construction is the only
// fallible setup step, operations never mutate the handle.
package counter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/agent"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/candid"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/config"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/identity"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/principal"
)

// Remote method symbols on the relay canister. Each takes the counter
// canister principal as its sole argument.
const (
	methodGet       = "call_get"
	methodIncrement = "call_increment"
	methodDecrement = "call_decrement"
)

// Config drives construction. Endpoint decides both where to connect and
// whether the trust-bootstrap round trip runs first.
type Config struct {
	Endpoint  config.Endpoint
	CounterID string
	RelayID   string
	// Identity defaults to anonymous.
	Identity identity.Identity
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client owns one live connection plus the two target identities. Immutable
// once Ready; safe for concurrent use. A client rebuilt from its serialized
// form has no connection until Rehydrate runs.
type Client struct {
	agent     *agent.Agent
	counterID principal.Principal
	relayID   principal.Principal
}

// New builds a Ready client: open the connection handle, run the trust
// bootstrap when the endpoint requires it, then parse both identities.
// Every failure here is terminal; no partially-usable client escapes.
func New(ctx context.Context, cfg Config) (*Client, error) {
	ag, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	counterID, relayID, err := parseIdentities(cfg.CounterID, cfg.RelayID)
	if err != nil {
		return nil, err
	}
	return &Client{agent: ag, counterID: counterID, relayID: relayID}, nil
}

// NewLocalClient targets the local development network with the default
// local canister pair unless ids are given.
func NewLocalClient(ctx context.Context, counterID, relayID string) (*Client, error) {
	ep, _ := config.EndpointFor(config.EnvLocal)
	return New(ctx, Config{Endpoint: ep, CounterID: counterID, RelayID: relayID})
}

// NewMainnetClient targets the production network.
func NewMainnetClient(ctx context.Context, counterID, relayID string) (*Client, error) {
	ep, _ := config.EndpointFor(config.EnvProd)
	return New(ctx, Config{Endpoint: ep, CounterID: counterID, RelayID: relayID})
}

func parseIdentities(counterText, relayText string) (principal.Principal, principal.Principal, error) {
	counterID, err := principal.FromText(counterText)
	if err != nil {
		return principal.Principal{}, principal.Principal{}, fmt.Errorf("%w: counter canister id %q: %v", ErrInvalidIdentity, counterText, err)
	}
	relayID, err := principal.FromText(relayText)
	if err != nil {
		return principal.Principal{}, principal.Principal{}, fmt.Errorf("%w: caller canister id %q: %v", ErrInvalidIdentity, relayText, err)
	}
	return counterID, relayID, nil
}

func connect(ctx context.Context, cfg Config) (*agent.Agent, error) {
	ag, err := agent.New(agent.Config{
		Endpoint:   cfg.Endpoint.URL,
		Identity:   cfg.Identity,
		HTTPClient: cfg.HTTPClient,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentCreation, err)
	}
	if cfg.Endpoint.RequireTrustBootstrap {
		if err := ag.FetchRootKey(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTrustBootstrap, err)
		}
	}
	return ag, nil
}

// Get reads the counter through the relay. It travels the same
// state-changing call path as the mutations, so all three operations
// share one finality protocol.
func (c *Client) Get(ctx context.Context) (string, error) {
	return c.call(ctx, methodGet)
}

// Increment bumps the counter by one and returns the new value.
func (c *Client) Increment(ctx context.Context) (string, error) {
	return c.call(ctx, methodIncrement)
}

// Decrement lowers the counter by one and returns the new value.
func (c *Client) Decrement(ctx context.Context) (string, error) {
	return c.call(ctx, methodDecrement)
}

// call is one single-shot round trip; no retries here, the caller owns
// retry policy. Failures never invalidate the handle.
func (c *Client) call(ctx context.Context, method string) (string, error) {
	if c.agent == nil {
		return "", ErrUnrehydrated
	}
	arg := candid.EncodePrincipalArg(c.counterID)
	reply, err := c.agent.Call(ctx, c.relayID, method, arg)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRemoteCall, method, err)
	}
	res, err := candid.DecodeResult(reply)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecode, method, err)
	}
	if res.IsErr() {
		return "", fmt.Errorf("%w: %s", ErrRemote, res.Err)
	}
	return res.Ok.String(), nil
}

// Identities returns (counter canister, caller canister).
func (c *Client) Identities() (principal.Principal, principal.Principal) {
	return c.counterID, c.relayID
}

// WhoAmI returns the principal this client signs as.
func (c *Client) WhoAmI() (principal.Principal, error) {
	if c.agent == nil {
		return principal.Principal{}, ErrUnrehydrated
	}
	return c.agent.Sender(), nil
}

// Ping probes endpoint connectivity without touching either canister.
func (c *Client) Ping(ctx context.Context) error {
	if c.agent == nil {
		return ErrUnrehydrated
	}
	return c.agent.Status(ctx)
}

// Rehydrate rebuilds the live connection on a client that crossed a
// serialization boundary. A no-op on a client that already has one.
func (c *Client) Rehydrate(ctx context.Context, cfg Config) error {
	if c.agent != nil {
		return nil
	}
	ag, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	c.agent = ag
	return nil
}

type clientJSON struct {
	CounterCanisterID string `json:"counter_canister_id"`
	CallerCanisterID  string `json:"caller_canister_id"`
}

// MarshalJSON carries the two identities only; the live connection never
// crosses a serialization boundary.
func (c *Client) MarshalJSON() ([]byte, error) {
	return json.Marshal(clientJSON{
		CounterCanisterID: c.counterID.String(),
		CallerCanisterID:  c.relayID.String(),
	})
}

// UnmarshalJSON yields an unrehydrated client: identities restored, no
// connection until Rehydrate.
func (c *Client) UnmarshalJSON(b []byte) error {
	var j clientJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	counterID, relayID, err := parseIdentities(j.CounterCanisterID, j.CallerCanisterID)
	if err != nil {
		return err
	}
	c.agent = nil
	c.counterID = counterID
	c.relayID = relayID
	return nil
}
