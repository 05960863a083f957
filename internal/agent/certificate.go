package agent

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrMalformedCertificate = errors.New("agent: malformed certificate")

// Hash tree node tags per the system state tree encoding.
const (
	treeEmpty   = 0
	treeFork    = 1
	treeLabeled = 2
	treeLeaf    = 3
	treePruned  = 4
)

type certificate struct {
	Tree       cbor.RawMessage `cbor:"tree"`
	Signature  []byte          `cbor:"signature"`
	Delegation cbor.RawMessage `cbor:"delegation,omitempty"`
}

type readStateResponse struct {
	Certificate []byte `cbor:"certificate"`
}

// decodeCertificate unwraps a read_state response down to its state tree.
func decodeCertificate(body []byte) (any, error) {
	var resp readStateResponse
	if err := cbor.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
	}
	if len(resp.Certificate) == 0 {
		return nil, fmt.Errorf("%w: empty certificate", ErrMalformedCertificate)
	}
	var cert certificate
	if err := cbor.Unmarshal(resp.Certificate, &cert); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
	}
	var tree any
	if err := cbor.Unmarshal(cert.Tree, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
	}
	return tree, nil
}

// lookupTree resolves a label path to a leaf value. A missing label, a
// pruned branch, or a path ending on a non-leaf all report not-found; the
// poll loop treats that as "not yet".
func lookupTree(node any, path ...[]byte) ([]byte, bool) {
	if len(path) == 0 {
		tag, parts, ok := treeNode(node)
		if !ok || tag != treeLeaf || len(parts) < 2 {
			return nil, false
		}
		leaf, ok := asBytes(parts[1])
		return leaf, ok
	}

	tag, parts, ok := treeNode(node)
	if !ok {
		return nil, false
	}
	switch tag {
	case treeFork:
		if len(parts) < 3 {
			return nil, false
		}
		if v, found := lookupTree(parts[1], path...); found {
			return v, true
		}
		return lookupTree(parts[2], path...)
	case treeLabeled:
		if len(parts) < 3 {
			return nil, false
		}
		label, ok := asBytes(parts[1])
		if !ok || string(label) != string(path[0]) {
			return nil, false
		}
		return lookupTree(parts[2], path[1:]...)
	default:
		return nil, false
	}
}

func treeNode(node any) (uint64, []any, bool) {
	parts, ok := node.([]any)
	if !ok || len(parts) == 0 {
		return 0, nil, false
	}
	tag, ok := asUint(parts[0])
	if !ok {
		return 0, nil, false
	}
	return tag, parts, true
}

func asBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	default:
		return nil, false
	}
}

func asUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// ulebValue decodes a LEB128 leaf such as reject_code.
func ulebValue(b []byte) (uint64, bool) {
	var v uint64
	var shift uint
	for _, c := range b {
		if shift >= 64 {
			return 0, false
		}
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, true
		}
		shift += 7
	}
	return 0, false
}
