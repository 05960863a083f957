package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/candid"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/identity"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/principal"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/testutil/replicatest"
)

var relayID = principal.MustFromText("uxrrr-q7777-77774-qaaaq-cai")

func newTestAgent(t *testing.T, endpoint string) *Agent {
	t.Helper()
	a, err := New(Config{
		Endpoint:    endpoint,
		PollInitial: 5 * time.Millisecond,
		PollMax:     20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNewValidatesEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		endpoint string
		want     error
	}{
		{name: "empty", endpoint: "", want: ErrEndpointRequired},
		{name: "blank", endpoint: "   ", want: ErrEndpointRequired},
		{name: "no scheme", endpoint: "127.0.0.1:4943", want: ErrEndpointScheme},
		{name: "wrong scheme", endpoint: "ftp://ic0.app", want: ErrEndpointScheme},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(Config{Endpoint: tc.endpoint}); !errors.Is(err, tc.want) {
				t.Fatalf("New(%q) err = %v, want %v", tc.endpoint, err, tc.want)
			}
		})
	}
}

func TestFetchRootKey(t *testing.T) {
	replica := replicatest.New()
	srv := replica.Serve()
	defer srv.Close()

	a := newTestAgent(t, srv.URL)
	if a.RootKey() != nil {
		t.Fatal("root key must be unset before bootstrap")
	}
	if err := a.FetchRootKey(context.Background()); err != nil {
		t.Fatalf("FetchRootKey: %v", err)
	}
	if len(a.RootKey()) == 0 {
		t.Fatal("root key not installed")
	}
	if replica.StatusCalls() != 1 {
		t.Fatalf("status calls = %d, want 1", replica.StatusCalls())
	}
}

func TestCallRepliesAfterPolling(t *testing.T) {
	replica := replicatest.New()
	replica.SetCounter(41)
	replica.RespondProcessing(2)
	srv := replica.Serve()
	defer srv.Close()

	a := newTestAgent(t, srv.URL)
	arg := candid.EncodePrincipalArg(principal.Anonymous())
	reply, err := a.Call(context.Background(), relayID, replicatest.MethodIncrement, arg)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	res, err := candid.DecodeResult(reply)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if res.Ok.String() != "42" {
		t.Fatalf("value = %s, want 42", res.Ok)
	}
}

func TestCallRejected(t *testing.T) {
	replica := replicatest.New()
	replica.RejectNext(5, "canister not found")
	srv := replica.Serve()
	defer srv.Close()

	a := newTestAgent(t, srv.URL)
	_, err := a.Call(context.Background(), relayID, replicatest.MethodGet, nil)
	var rejectErr *RejectError
	if !errors.As(err, &rejectErr) {
		t.Fatalf("expected RejectError, got %v", err)
	}
	if rejectErr.Code != 5 || rejectErr.Message != "canister not found" {
		t.Fatalf("reject = %+v", rejectErr)
	}
}

func TestCallSignedIdentity(t *testing.T) {
	replica := replicatest.New()
	srv := replica.Serve()
	defer srv.Close()

	id, err := identity.NewEd25519()
	if err != nil {
		t.Fatalf("NewEd25519: %v", err)
	}
	a, err := New(Config{
		Endpoint:    srv.URL,
		Identity:    id,
		PollInitial: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !a.Sender().Equal(id.Sender()) {
		t.Fatal("agent sender must match identity sender")
	}
	if _, err := a.Call(context.Background(), relayID, replicatest.MethodGet, nil); err != nil {
		t.Fatalf("signed call failed: %v", err)
	}
}

func TestCallCancellation(t *testing.T) {
	replica := replicatest.New()
	replica.RespondProcessing(1 << 30) // never finalizes
	srv := replica.Serve()
	defer srv.Close()

	a := newTestAgent(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Call(ctx, relayID, replicatest.MethodGet, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStatusProbe(t *testing.T) {
	replica := replicatest.New()
	srv := replica.Serve()
	defer srv.Close()

	a := newTestAgent(t, srv.URL)
	if err := a.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if err := a.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if replica.StatusCalls() != 2 {
		t.Fatalf("status calls = %d, want 2", replica.StatusCalls())
	}
}
