package identity

import (
	"crypto/ed25519"
	"testing"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/principal"
)

func TestAnonymousSender(t *testing.T) {
	var id Anonymous
	if !id.Sender().IsAnonymous() {
		t.Fatal("anonymous identity must carry the anonymous principal")
	}
	if id.PublicKey() != nil {
		t.Fatal("anonymous identity must not expose a public key")
	}
	sig, err := id.Sign([]byte("anything"))
	if err != nil || sig != nil {
		t.Fatalf("anonymous Sign = (%x, %v), want (nil, nil)", sig, err)
	}
}

func TestEd25519SenderIsStable(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	a, err := Ed25519FromKey(ed25519.NewKeyFromSeed(seed))
	if err != nil {
		t.Fatalf("Ed25519FromKey: %v", err)
	}
	b, err := Ed25519FromKey(ed25519.NewKeyFromSeed(seed))
	if err != nil {
		t.Fatalf("Ed25519FromKey: %v", err)
	}
	if !a.Sender().Equal(b.Sender()) {
		t.Fatalf("same key, different senders: %s vs %s", a.Sender(), b.Sender())
	}
	if _, err := principal.FromText(a.Sender().String()); err != nil {
		t.Fatalf("sender principal does not round-trip: %v", err)
	}
}

func TestEd25519SignVerifies(t *testing.T) {
	id, err := NewEd25519()
	if err != nil {
		t.Fatalf("NewEd25519: %v", err)
	}
	msg := []byte("\x0aic-request0123456789abcdef0123456789abcdef")
	sig, err := id.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != ed25519.SignatureSize {
		t.Fatalf("signature size = %d", len(sig))
	}
	if id.Sender().IsAnonymous() {
		t.Fatal("ed25519 identity must not be anonymous")
	}
}
