// Package agent owns one HTTP connection to a replica endpoint and speaks
// its CBOR envelope protocol: status probes, root-key trust bootstrap, and
// state-changing calls with wait-for-finality polling. It knows nothing
// about counters; callers hand it a target, a method name, and an encoded
// argument.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/identity"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/principal"
)

var (
	ErrEndpointRequired   = errors.New("agent: endpoint url required")
	ErrEndpointScheme     = errors.New("agent: endpoint url must be http or https")
	ErrRootKeyUnavailable = errors.New("agent: status response carries no root key")
	ErrResultPurged       = errors.New("agent: call result no longer available")
)

// RejectError is a replica-level rejection of the round trip itself,
// distinct from a failure the target canister reports in its return value.
type RejectError struct {
	Code    uint64
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("agent: call rejected: code=%d message=%q", e.Code, e.Message)
}

// Config describes one connection. Zero-value fields fall back to defaults.
type Config struct {
	// Endpoint is the replica base URL. Required.
	Endpoint string
	// Identity signs outgoing envelopes. Defaults to anonymous.
	Identity identity.Identity
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
	// IngressExpiry bounds how long a submitted call stays valid.
	IngressExpiry time.Duration
	// PollInitial and PollMax shape the wait-for-finality backoff.
	PollInitial time.Duration
	PollMax     time.Duration
	// Logger defaults to a no-op logger when nil.
	Logger *zerolog.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.Identity == nil {
		cfg.Identity = identity.Anonymous{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.IngressExpiry <= 0 {
		cfg.IngressExpiry = 3 * time.Minute
	}
	if cfg.PollInitial <= 0 {
		cfg.PollInitial = 250 * time.Millisecond
	}
	if cfg.PollMax <= 0 {
		cfg.PollMax = 2 * time.Second
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	return cfg
}

// Agent is immutable after construction apart from the root key installed
// by FetchRootKey, which must happen before the first call on untrusted
// networks. Safe for concurrent use once bootstrapped.
type Agent struct {
	endpoint      string
	client        *http.Client
	id            identity.Identity
	ingressExpiry time.Duration
	pollInitial   time.Duration
	pollMax       time.Duration
	rootKey       []byte
	logger        zerolog.Logger
}

// New validates the endpoint and builds the handle. No I/O happens here.
func New(cfg Config) (*Agent, error) {
	raw := strings.TrimSpace(cfg.Endpoint)
	if raw == "" {
		return nil, ErrEndpointRequired
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("agent: parse endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrEndpointScheme, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrEndpointRequired, raw)
	}
	cfg = cfg.withDefaults()
	return &Agent{
		endpoint:      strings.TrimRight(u.String(), "/"),
		client:        cfg.HTTPClient,
		id:            cfg.Identity,
		ingressExpiry: cfg.IngressExpiry,
		pollInitial:   cfg.PollInitial,
		pollMax:       cfg.PollMax,
		logger:        *cfg.Logger,
	}, nil
}

// Sender is the caller principal this connection signs as.
func (a *Agent) Sender() principal.Principal {
	return a.id.Sender()
}

// RootKey returns the trust material installed by FetchRootKey, nil before
// bootstrap.
func (a *Agent) RootKey() []byte {
	return a.rootKey
}

type statusResponse struct {
	RootKey []byte `cbor:"root_key"`
}

// Status probes the endpoint without touching any canister.
func (a *Agent) Status(ctx context.Context) error {
	_, err := a.fetchStatus(ctx)
	return err
}

// FetchRootKey performs the one-time trust bootstrap against a network that
// is not pre-trusted. It must complete before any call is issued there.
func (a *Agent) FetchRootKey(ctx context.Context) error {
	status, err := a.fetchStatus(ctx)
	if err != nil {
		return err
	}
	if len(status.RootKey) == 0 {
		return ErrRootKeyUnavailable
	}
	a.rootKey = status.RootKey
	a.logger.Debug().Int("root_key_bytes", len(status.RootKey)).Msg("trust bootstrap complete")
	return nil
}

func (a *Agent) fetchStatus(ctx context.Context) (statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/api/v2/status", nil)
	if err != nil {
		return statusResponse{}, fmt.Errorf("agent: build status request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return statusResponse{}, fmt.Errorf("agent: status round trip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusResponse{}, fmt.Errorf("agent: status endpoint returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return statusResponse{}, fmt.Errorf("agent: read status body: %w", err)
	}
	var status statusResponse
	if err := cbor.Unmarshal(body, &status); err != nil {
		return statusResponse{}, fmt.Errorf("agent: decode status body: %w", err)
	}
	return status, nil
}

// Call submits a state-changing call to canisterID and waits for finality.
// One round trip only; no retry on failure. Cancellation abandons the wait
// but does not undo a committed remote effect.
func (a *Agent) Call(ctx context.Context, canisterID principal.Principal, method string, arg []byte) ([]byte, error) {
	nonce := uuid.New()
	content := callContent{
		RequestType:   "call",
		Sender:        a.id.Sender().Bytes(),
		Nonce:         nonce[:],
		IngressExpiry: a.expiry(),
		CanisterID:    canisterID.Bytes(),
		MethodName:    method,
		Arg:           arg,
	}
	requestID := requestIDOfCall(content)
	body, err := a.sealEnvelope(content, requestID)
	if err != nil {
		return nil, err
	}

	callURL := fmt.Sprintf("%s/api/v2/canister/%s/call", a.endpoint, canisterID)
	resp, respBody, err := a.post(ctx, callURL, body)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusAccepted:
		// Submitted; finality comes from polling below.
	case http.StatusOK:
		// Synchronous rejection path: the body carries the reject record.
		if rejectErr := decodeReject(respBody); rejectErr != nil {
			return nil, rejectErr
		}
		return nil, fmt.Errorf("agent: unexpected 200 call response (%d bytes)", len(respBody))
	default:
		return nil, fmt.Errorf("agent: call endpoint returned %s: %s", resp.Status, trimBody(respBody))
	}

	a.logger.Debug().
		Str("canister", canisterID.String()).
		Str("method", method).
		Hex("request_id", requestID[:]).
		Msg("call submitted")
	return a.waitForFinality(ctx, canisterID, requestID)
}

type rejectBody struct {
	RejectCode    uint64 `cbor:"reject_code"`
	RejectMessage string `cbor:"reject_message"`
}

func decodeReject(body []byte) error {
	var rb rejectBody
	if err := cbor.Unmarshal(body, &rb); err != nil || rb.RejectCode == 0 {
		return nil
	}
	return &RejectError{Code: rb.RejectCode, Message: rb.RejectMessage}
}

func (a *Agent) waitForFinality(ctx context.Context, canisterID principal.Principal, requestID [32]byte) ([]byte, error) {
	statusPath := [][]byte{[]byte("request_status"), requestID[:]}
	for attempt := 1; ; attempt++ {
		tree, err := a.readRequestStatus(ctx, canisterID, statusPath)
		if err != nil {
			return nil, err
		}
		status, found := lookupTree(tree, statusPath[0], statusPath[1], []byte("status"))
		if found {
			switch string(status) {
			case "replied":
				reply, ok := lookupTree(tree, statusPath[0], statusPath[1], []byte("reply"))
				if !ok {
					return nil, fmt.Errorf("%w: replied without reply", ErrMalformedCertificate)
				}
				return reply, nil
			case "rejected":
				return nil, rejectFromTree(tree, statusPath)
			case "done":
				return nil, ErrResultPurged
			case "received", "processing":
				// Not final yet.
			default:
				return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedCertificate, status)
			}
		}
		if err := a.sleepPoll(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func rejectFromTree(tree any, statusPath [][]byte) error {
	rejectErr := &RejectError{}
	if raw, ok := lookupTree(tree, statusPath[0], statusPath[1], []byte("reject_code")); ok {
		if code, valid := ulebValue(raw); valid {
			rejectErr.Code = code
		}
	}
	if msg, ok := lookupTree(tree, statusPath[0], statusPath[1], []byte("reject_message")); ok {
		rejectErr.Message = string(msg)
	}
	return rejectErr
}

func (a *Agent) readRequestStatus(ctx context.Context, canisterID principal.Principal, statusPath [][]byte) (any, error) {
	content := readStateContent{
		RequestType:   "read_state",
		Sender:        a.id.Sender().Bytes(),
		IngressExpiry: a.expiry(),
		Paths:         [][][]byte{statusPath},
	}
	body, err := a.sealEnvelope(content, requestIDOfReadState(content))
	if err != nil {
		return nil, err
	}
	stateURL := fmt.Sprintf("%s/api/v2/canister/%s/read_state", a.endpoint, canisterID)
	resp, respBody, err := a.post(ctx, stateURL, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: read_state endpoint returned %s: %s", resp.Status, trimBody(respBody))
	}
	return decodeCertificate(respBody)
}

func (a *Agent) post(ctx context.Context, rawURL string, body []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/cbor")
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("agent: round trip: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("agent: read response: %w", err)
	}
	return resp, respBody, nil
}

func (a *Agent) expiry() uint64 {
	return uint64(time.Now().Add(a.ingressExpiry).UnixNano())
}

// sleepPoll waits the backoff delay for attempt N (1-based), honoring ctx.
func (a *Agent) sleepPoll(ctx context.Context, attempt int) error {
	delay := float64(a.pollInitial) * math.Pow(1.5, float64(attempt-1))
	if delay > float64(a.pollMax) {
		delay = float64(a.pollMax)
	}
	timer := time.NewTimer(time.Duration(delay))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func trimBody(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
