// Package identity holds the caller identities a connection can sign with.
// The anonymous identity sends unsigned envelopes; the Ed25519 identity
// signs with the standard request domain separator and derives its caller
// principal from the DER form of its public key.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/principal"
)

// Identity signs request envelopes on behalf of one caller principal.
type Identity interface {
	// Sender is the caller principal placed in every request content map.
	Sender() principal.Principal
	// PublicKey returns the DER-encoded public key, nil for anonymous.
	PublicKey() []byte
	// Sign signs the domain-separated request digest; (nil, nil) means the
	// envelope travels unsigned.
	Sign(msg []byte) ([]byte, error)
}

// Anonymous is the identity used when no key material is configured.
type Anonymous struct{}

func (Anonymous) Sender() principal.Principal { return principal.Anonymous() }

func (Anonymous) PublicKey() []byte { return nil }

func (Anonymous) Sign([]byte) ([]byte, error) { return nil, nil }

// Ed25519 is a self-authenticating signing identity.
type Ed25519 struct {
	priv   ed25519.PrivateKey
	der    []byte
	sender principal.Principal
}

// NewEd25519 generates a fresh keypair.
func NewEd25519() (*Ed25519, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate ed25519 key: %w", err)
	}
	return Ed25519FromKey(priv)
}

// Ed25519FromKey wraps an existing private key.
func Ed25519FromKey(priv ed25519.PrivateKey) (*Ed25519, error) {
	der, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return nil, fmt.Errorf("identity: encode public key: %w", err)
	}
	return &Ed25519{
		priv:   priv,
		der:    der,
		sender: principal.SelfAuthenticating(der),
	}, nil
}

func (id *Ed25519) Sender() principal.Principal { return id.sender }

func (id *Ed25519) PublicKey() []byte { return id.der }

func (id *Ed25519) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(id.priv, msg), nil
}
