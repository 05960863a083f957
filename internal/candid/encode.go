package candid

import (
	"math/big"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/principal"
)

// EncodePrincipalArg builds the argument tuple (principal). Principals are
// primitive, so the type table is empty; the value carries the reference
// tag byte 0x01 followed by the length-prefixed raw identifier.
func EncodePrincipalArg(p principal.Principal) []byte {
	raw := p.Bytes()
	out := make([]byte, 0, len(magic)+4+len(raw))
	out = append(out, magic...)
	out = appendULEB(out, 0) // type table entries
	out = appendULEB(out, 1) // argument count
	out = appendSLEB(out, typePrincipal)
	out = append(out, 0x01) // id reference form
	out = appendULEB(out, uint64(len(raw)))
	out = append(out, raw...)
	return out
}

// EncodeResult builds a (variant { Ok : nat; Err : text }) return message.
// The agent only decodes this shape; encoding exists for the simulated
// relay used in tests and for symmetry with DecodeResult.
func EncodeResult(r Result) []byte {
	out := append([]byte{}, magic...)
	out = appendULEB(out, 1) // one type table entry: the variant
	out = appendSLEB(out, typeVariant)
	out = appendULEB(out, 2)
	out = appendULEB(out, fieldOk)
	out = appendSLEB(out, typeNat)
	out = appendULEB(out, fieldErr)
	out = appendSLEB(out, typeText)
	out = appendULEB(out, 1) // argument count
	out = appendSLEB(out, 0) // argument type: table index 0
	if r.IsErr() {
		out = appendULEB(out, 1)
		out = appendULEB(out, uint64(len(r.Err)))
		out = append(out, r.Err...)
		return out
	}
	out = appendULEB(out, 0)
	return appendBigULEB(out, r.Ok)
}

// EncodeOkResult is a convenience wrapper for uint64-sized counter values.
func EncodeOkResult(v uint64) []byte {
	return EncodeResult(Result{Ok: new(big.Int).SetUint64(v)})
}

// EncodeErrResult wraps a remote-reported failure message.
func EncodeErrResult(msg string) []byte {
	return EncodeResult(Result{Err: msg})
}
