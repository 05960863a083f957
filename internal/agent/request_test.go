package agent

import (
	"encoding/hex"
	"testing"
)

// Known vector from the interface specification's request-id example.
func TestRequestIDKnownVector(t *testing.T) {
	content := callContent{
		RequestType: "call",
		CanisterID:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0xD2},
		MethodName:  "hello",
		Arg:         []byte("DIDL\x00\xfd*"),
	}
	rid := hashOfMap([]hashEntry{
		{key: "request_type", digest: hashString(content.RequestType)},
		{key: "canister_id", digest: hashBlob(content.CanisterID)},
		{key: "method_name", digest: hashString(content.MethodName)},
		{key: "arg", digest: hashBlob(content.Arg)},
	})
	want := "8781291c347db32a9d8c10eb62b710fce5a93be676474c42babc74c51858f94b"
	if got := hex.EncodeToString(rid[:]); got != want {
		t.Fatalf("request id = %s, want %s", got, want)
	}
}

func TestRequestIDFieldOrderIrrelevant(t *testing.T) {
	a := hashOfMap([]hashEntry{
		{key: "request_type", digest: hashString("call")},
		{key: "method_name", digest: hashString("hello")},
	})
	b := hashOfMap([]hashEntry{
		{key: "method_name", digest: hashString("hello")},
		{key: "request_type", digest: hashString("call")},
	})
	if a != b {
		t.Fatal("hashOfMap must be order independent")
	}
}

func TestRequestIDNonceChangesID(t *testing.T) {
	base := callContent{
		RequestType: "call",
		Sender:      []byte{0x04},
		MethodName:  "call_get",
		Arg:         []byte("DIDL"),
	}
	withNonce := base
	withNonce.Nonce = []byte{1, 2, 3}
	if requestIDOfCall(base) == requestIDOfCall(withNonce) {
		t.Fatal("nonce must change the request id")
	}
}

func TestHashUintMatchesLEB128(t *testing.T) {
	// 1234567890 encodes as d2 85 d8 cc 04; hashing anything else would
	// desync request ids between caller and replica.
	if hashUint(1234567890) != hashBlob([]byte{0xd2, 0x85, 0xd8, 0xcc, 0x04}) {
		t.Fatal("hashUint does not hash the LEB128 encoding")
	}
}
