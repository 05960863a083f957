package agent

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// requestDomainSeparator prefixes every signed request digest.
const requestDomainSeparator = "\x0aic-request"

// selfDescribedTag marks the envelope as self-describing CBOR.
const selfDescribedTag = 55799

type callContent struct {
	RequestType   string `cbor:"request_type"`
	Sender        []byte `cbor:"sender"`
	Nonce         []byte `cbor:"nonce,omitempty"`
	IngressExpiry uint64 `cbor:"ingress_expiry"`
	CanisterID    []byte `cbor:"canister_id"`
	MethodName    string `cbor:"method_name"`
	Arg           []byte `cbor:"arg"`
}

type readStateContent struct {
	RequestType   string     `cbor:"request_type"`
	Sender        []byte     `cbor:"sender"`
	IngressExpiry uint64     `cbor:"ingress_expiry"`
	Paths         [][][]byte `cbor:"paths"`
}

type envelope struct {
	Content      any    `cbor:"content"`
	SenderPubkey []byte `cbor:"sender_pubkey,omitempty"`
	SenderSig    []byte `cbor:"sender_sig,omitempty"`
}

// hashEntry is one field of a request content map, its value already hashed.
type hashEntry struct {
	key    string
	digest [sha256.Size]byte
}

func hashBlob(b []byte) [sha256.Size]byte {
	return sha256.Sum256(b)
}

func hashString(s string) [sha256.Size]byte {
	return sha256.Sum256([]byte(s))
}

func hashUint(v uint64) [sha256.Size]byte {
	buf := make([]byte, 0, 10)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			break
		}
	}
	return sha256.Sum256(buf)
}

// hashPaths hashes an array of paths, each path an array of blobs.
func hashPaths(paths [][][]byte) [sha256.Size]byte {
	var outer []byte
	for _, path := range paths {
		var inner []byte
		for _, segment := range path {
			d := hashBlob(segment)
			inner = append(inner, d[:]...)
		}
		d := sha256.Sum256(inner)
		outer = append(outer, d[:]...)
	}
	return sha256.Sum256(outer)
}

// hashOfMap computes the representation-independent hash of a content map:
// per entry sha256(key) || hash(value), entries sorted bytewise, then hashed
// as one blob.
func hashOfMap(entries []hashEntry) [sha256.Size]byte {
	rows := make([][]byte, 0, len(entries))
	for _, e := range entries {
		k := hashString(e.key)
		rows = append(rows, append(k[:], e.digest[:]...))
	}
	sort.Slice(rows, func(i, j int) bool {
		return string(rows[i]) < string(rows[j])
	})
	var all []byte
	for _, row := range rows {
		all = append(all, row...)
	}
	return sha256.Sum256(all)
}

func requestIDOfCall(c callContent) [sha256.Size]byte {
	entries := []hashEntry{
		{key: "request_type", digest: hashString(c.RequestType)},
		{key: "sender", digest: hashBlob(c.Sender)},
		{key: "ingress_expiry", digest: hashUint(c.IngressExpiry)},
		{key: "canister_id", digest: hashBlob(c.CanisterID)},
		{key: "method_name", digest: hashString(c.MethodName)},
		{key: "arg", digest: hashBlob(c.Arg)},
	}
	if len(c.Nonce) > 0 {
		entries = append(entries, hashEntry{key: "nonce", digest: hashBlob(c.Nonce)})
	}
	return hashOfMap(entries)
}

func requestIDOfReadState(c readStateContent) [sha256.Size]byte {
	return hashOfMap([]hashEntry{
		{key: "request_type", digest: hashString(c.RequestType)},
		{key: "sender", digest: hashBlob(c.Sender)},
		{key: "ingress_expiry", digest: hashUint(c.IngressExpiry)},
		{key: "paths", digest: hashPaths(c.Paths)},
	})
}

// sealEnvelope signs the request digest and produces the wire body.
func (a *Agent) sealEnvelope(content any, requestID [sha256.Size]byte) ([]byte, error) {
	msg := append([]byte(requestDomainSeparator), requestID[:]...)
	sig, err := a.id.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("agent: sign request: %w", err)
	}
	env := envelope{
		Content:      content,
		SenderPubkey: a.id.PublicKey(),
		SenderSig:    sig,
	}
	body, err := cbor.Marshal(cbor.Tag{Number: selfDescribedTag, Content: env})
	if err != nil {
		return nil, fmt.Errorf("agent: encode envelope: %w", err)
	}
	return body, nil
}
