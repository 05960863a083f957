package candid

import (
	"fmt"
	"math/big"
)

func appendULEB(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

func appendSLEB(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// appendBigULEB encodes an arbitrary-precision non-negative integer.
func appendBigULEB(dst []byte, v *big.Int) []byte {
	if v.Sign() < 0 {
		panic("candid: negative nat")
	}
	n := new(big.Int).Set(v)
	mask := big.NewInt(0x7f)
	for {
		b := byte(new(big.Int).And(n, mask).Uint64())
		n.Rsh(n, 7)
		if n.Sign() != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if n.Sign() == 0 {
			return dst
		}
	}
}

// reader walks a message with truncation-safe accessors.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrTruncated
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uleb() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 || (shift == 63 && b&0x7e != 0) {
			return 0, ErrOverflow
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

func (r *reader) sleb() (int64, error) {
	var v int64
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 {
			return 0, ErrOverflow
		}
		v |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				v |= -1 << shift
			}
			return v, nil
		}
	}
}

// bigULEB reads an arbitrary-precision nat.
func (r *reader) bigULEB() (*big.Int, error) {
	out := new(big.Int)
	chunk := new(big.Int)
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		chunk.SetUint64(uint64(b & 0x7f))
		out.Or(out, chunk.Lsh(chunk, shift))
		if b&0x80 == 0 {
			return out, nil
		}
		shift += 7
	}
}

// lenPrefixed reads a ULEB128 length followed by that many bytes.
func (r *reader) lenPrefixed() ([]byte, error) {
	n, err := r.uleb()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, ErrTruncated
	}
	return r.bytes(int(n))
}

func (r *reader) expectMagic() error {
	head, err := r.bytes(len(magic))
	if err != nil {
		return fmt.Errorf("%w: missing magic", ErrTruncated)
	}
	if string(head) != string(magic) {
		return ErrBadMagic
	}
	return nil
}
