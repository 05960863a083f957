package candid

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/principal"
)

func TestHashFieldName(t *testing.T) {
	cases := []struct {
		name string
		want uint64
	}{
		{name: "Ok", want: 17724},
		{name: "Err", want: 3456837},
	}
	for _, tc := range cases {
		if got := HashFieldName(tc.name); got != tc.want {
			t.Fatalf("HashFieldName(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestEncodePrincipalArg(t *testing.T) {
	// Management canister: empty raw identifier.
	p := principal.MustFromText("aaaaa-aa")
	got := EncodePrincipalArg(p)
	want := []byte{'D', 'I', 'D', 'L', 0x00, 0x01, 0x68, 0x01, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("EncodePrincipalArg = %x, want %x", got, want)
	}
}

func TestEncodePrincipalArgCarriesRawID(t *testing.T) {
	p := principal.MustFromText("u6s2n-gx777-77774-qaaba-cai")
	got := EncodePrincipalArg(p)
	if !bytes.HasSuffix(got, p.Bytes()) {
		t.Fatalf("encoded arg does not end with raw identifier: %x", got)
	}
}

func TestDecodeResultOk(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{name: "zero", value: "0"},
		{name: "small", value: "42"},
		{name: "beyond uint64", value: "340282366920938463463374607431768211455"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := new(big.Int).SetString(tc.value, 10)
			if !ok {
				t.Fatalf("bad test value %q", tc.value)
			}
			res, err := DecodeResult(EncodeResult(Result{Ok: v}))
			if err != nil {
				t.Fatalf("DecodeResult: %v", err)
			}
			if res.IsErr() {
				t.Fatalf("unexpected Err arm: %q", res.Err)
			}
			if res.Ok.String() != tc.value {
				t.Fatalf("value = %s, want %s", res.Ok.String(), tc.value)
			}
		})
	}
}

func TestDecodeResultErrArm(t *testing.T) {
	res, err := DecodeResult(EncodeErrResult("counter underflow"))
	if err != nil {
		t.Fatalf("Err arm must decode cleanly, got %v", err)
	}
	if !res.IsErr() {
		t.Fatal("expected Err arm")
	}
	if res.Err != "counter underflow" {
		t.Fatalf("message = %q", res.Err)
	}
}

func TestDecodeResultTruncated(t *testing.T) {
	full := EncodeOkResult(1234567)
	for cut := range full {
		if _, err := DecodeResult(full[:cut]); err == nil {
			t.Fatalf("truncation at %d accepted", cut)
		}
	}
}

func TestDecodeResultBadMagic(t *testing.T) {
	msg := EncodeOkResult(7)
	msg[0] = 'X'
	if _, err := DecodeResult(msg); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDecodeResultWrongShape(t *testing.T) {
	// A bare principal argument is a well-formed message of the wrong type.
	msg := EncodePrincipalArg(principal.Anonymous())
	if _, err := DecodeResult(msg); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestDecodeResultTrailingBytes(t *testing.T) {
	msg := append(EncodeOkResult(7), 0xff)
	if _, err := DecodeResult(msg); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
}

func TestDecodeResultBadVariantIndex(t *testing.T) {
	msg := EncodeOkResult(7)
	// The variant index is the byte right after the argument type list; for
	// this fixed shape that is the third byte from the end minus the nat.
	// Rebuild instead: take the Err encoding and bump the index past range.
	msg = EncodeErrResult("x")
	idxPos := len(msg) - 1 /*text byte*/ - 1 /*text len*/ - 1 /*variant idx*/
	msg[idxPos] = 5
	if _, err := DecodeResult(msg); !errors.Is(err, ErrBadVariantIndex) {
		t.Fatalf("expected ErrBadVariantIndex, got %v", err)
	}
}

func TestDecodeResultLongMessage(t *testing.T) {
	res, err := DecodeResult(EncodeErrResult(strings.Repeat("a", 300)))
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if len(res.Err) != 300 {
		t.Fatalf("message length = %d", len(res.Err))
	}
}
