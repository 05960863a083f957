// Package principal implements the opaque identifier naming actors on the
// network: canisters, signing callers, and the anonymous caller. The textual
// form is base32 over a CRC-32 check sequence plus the raw identifier,
// lowercased and dash-grouped in fives.
package principal

import (
	"bytes"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// MaxLength bounds the raw identifier, check sequence excluded.
const MaxLength = 29

var (
	ErrTooLong      = errors.New("principal: identifier exceeds maximum length")
	ErrEmpty        = errors.New("principal: empty textual form")
	ErrEncoding     = errors.New("principal: malformed textual form")
	ErrChecksum     = errors.New("principal: checksum mismatch")
	ErrNotCanonical = errors.New("principal: non-canonical textual form")
)

var base32enc = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is immutable once constructed; the zero value is the management
// identifier (empty raw form).
type Principal struct {
	raw string
}

const (
	anonymousTag = 0x04
	selfAuthTag  = 0x02
)

// FromBytes wraps a raw identifier.
func FromBytes(b []byte) (Principal, error) {
	if len(b) > MaxLength {
		return Principal{}, fmt.Errorf("%w: %d bytes", ErrTooLong, len(b))
	}
	return Principal{raw: string(b)}, nil
}

// FromText parses the canonical textual form. Parsing is strict: the input
// must round-trip byte for byte, so grouping, case, and checksum are all
// enforced.
func FromText(text string) (Principal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Principal{}, ErrEmpty
	}
	compact := strings.ReplaceAll(trimmed, "-", "")
	decoded, err := base32enc.DecodeString(strings.ToUpper(compact))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if len(decoded) < crc32.Size {
		return Principal{}, fmt.Errorf("%w: %d bytes after decode", ErrEncoding, len(decoded))
	}
	raw := decoded[crc32.Size:]
	if len(raw) > MaxLength {
		return Principal{}, fmt.Errorf("%w: %d bytes", ErrTooLong, len(raw))
	}
	var sum [crc32.Size]byte
	crcPut(sum[:], crc32.ChecksumIEEE(raw))
	if !bytes.Equal(decoded[:crc32.Size], sum[:]) {
		return Principal{}, ErrChecksum
	}
	p := Principal{raw: string(raw)}
	if p.String() != strings.ToLower(trimmed) {
		return Principal{}, fmt.Errorf("%w: %q", ErrNotCanonical, text)
	}
	return p, nil
}

// MustFromText is for fixed identifiers known to be valid.
func MustFromText(text string) Principal {
	p, err := FromText(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Anonymous is the caller used when no signing identity is configured.
func Anonymous() Principal {
	return Principal{raw: string([]byte{anonymousTag})}
}

// SelfAuthenticating derives the caller identifier owned by a public key,
// given the key in DER form.
func SelfAuthenticating(derPublicKey []byte) Principal {
	sum := sha256.Sum224(derPublicKey)
	return Principal{raw: string(sum[:]) + string([]byte{selfAuthTag})}
}

func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

func (p Principal) IsAnonymous() bool {
	return p.raw == string([]byte{anonymousTag})
}

func (p Principal) Equal(o Principal) bool {
	return p.raw == o.raw
}

// String renders the canonical textual form.
func (p Principal) String() string {
	var sum [crc32.Size]byte
	crcPut(sum[:], crc32.ChecksumIEEE([]byte(p.raw)))
	encoded := strings.ToLower(base32enc.EncodeToString(append(sum[:], p.raw...)))

	var b strings.Builder
	for i, r := range encoded {
		if i > 0 && i%5 == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func crcPut(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}
