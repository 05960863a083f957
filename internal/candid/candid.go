// Package candid implements the slice of the Candid binary format this
// system speaks: a single-principal argument tuple on the way out, and a
// two-armed result of (nat | text) on the way back. Values travel inside a
// "DIDL"-tagged message carrying a type table, an argument type list, and
// the argument values.
package candid

import (
	"errors"
	"math/big"
)

var (
	ErrBadMagic        = errors.New("candid: bad magic")
	ErrTruncated       = errors.New("candid: truncated message")
	ErrOverflow        = errors.New("candid: varint exceeds 64 bits")
	ErrTypeMismatch    = errors.New("candid: unexpected type")
	ErrBadVariantIndex = errors.New("candid: variant index out of range")
	ErrTrailingBytes   = errors.New("candid: trailing bytes after value")
)

// Primitive and composite type opcodes (SLEB128-encoded on the wire).
const (
	typeNat       int64 = -3
	typeText      int64 = -15
	typeOpt       int64 = -18
	typeVec       int64 = -19
	typeRecord    int64 = -20
	typeVariant   int64 = -21
	typePrincipal int64 = -24
)

var magic = []byte("DIDL")

// Result is the decoded two-armed return value: exactly one arm is set.
type Result struct {
	Ok  *big.Int
	Err string
}

// IsErr reports whether the remote side reported failure.
func (r Result) IsErr() bool {
	return r.Ok == nil
}

// HashFieldName maps a variant field name to its numeric id.
func HashFieldName(name string) uint64 {
	var h uint64
	for _, b := range []byte(name) {
		h = (h*223 + uint64(b)) % (1 << 32)
	}
	return h
}

var (
	fieldOk  = HashFieldName("Ok")
	fieldErr = HashFieldName("Err")
)
