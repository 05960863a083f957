package candid

import (
	"fmt"
)

type fieldType struct {
	id  uint64
	typ int64
}

type tableEntry struct {
	opcode int64
	inner  int64
	fields []fieldType
}

// DecodeResult decodes a (variant { Ok : nat; Err : text }) return message.
// Any shape deviation surfaces as ErrTypeMismatch; short input as
// ErrTruncated. Both are decode failures, distinct from the Err arm, which
// decodes successfully into Result.Err.
func DecodeResult(msg []byte) (Result, error) {
	r := &reader{buf: msg}
	if err := r.expectMagic(); err != nil {
		return Result{}, err
	}

	table, err := readTypeTable(r)
	if err != nil {
		return Result{}, err
	}

	argc, err := r.uleb()
	if err != nil {
		return Result{}, err
	}
	if argc != 1 {
		return Result{}, fmt.Errorf("%w: %d return values, want 1", ErrTypeMismatch, argc)
	}
	argType, err := r.sleb()
	if err != nil {
		return Result{}, err
	}
	if argType < 0 || argType >= int64(len(table)) {
		return Result{}, fmt.Errorf("%w: return type %d is not a variant", ErrTypeMismatch, argType)
	}
	variant := table[argType]
	if variant.opcode != typeVariant {
		return Result{}, fmt.Errorf("%w: return type opcode %d is not a variant", ErrTypeMismatch, variant.opcode)
	}

	idx, err := r.uleb()
	if err != nil {
		return Result{}, err
	}
	if idx >= uint64(len(variant.fields)) {
		return Result{}, fmt.Errorf("%w: index %d of %d fields", ErrBadVariantIndex, idx, len(variant.fields))
	}

	var out Result
	switch arm := variant.fields[idx]; {
	case arm.id == fieldOk && arm.typ == typeNat:
		value, err := r.bigULEB()
		if err != nil {
			return Result{}, err
		}
		out = Result{Ok: value}
	case arm.id == fieldErr && arm.typ == typeText:
		text, err := r.lenPrefixed()
		if err != nil {
			return Result{}, err
		}
		out = Result{Err: string(text)}
	default:
		return Result{}, fmt.Errorf("%w: variant field id=%d type=%d", ErrTypeMismatch, arm.id, arm.typ)
	}

	if r.remaining() != 0 {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrTrailingBytes, r.remaining())
	}
	return out, nil
}

func readTypeTable(r *reader) ([]tableEntry, error) {
	count, err := r.uleb()
	if err != nil {
		return nil, err
	}
	if count > uint64(r.remaining()) {
		return nil, ErrTruncated
	}
	table := make([]tableEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		opcode, err := r.sleb()
		if err != nil {
			return nil, err
		}
		entry := tableEntry{opcode: opcode}
		switch opcode {
		case typeOpt, typeVec:
			inner, err := r.sleb()
			if err != nil {
				return nil, err
			}
			entry.inner = inner
		case typeRecord, typeVariant:
			n, err := r.uleb()
			if err != nil {
				return nil, err
			}
			if n > uint64(r.remaining()) {
				return nil, ErrTruncated
			}
			entry.fields = make([]fieldType, 0, n)
			for j := uint64(0); j < n; j++ {
				id, err := r.uleb()
				if err != nil {
					return nil, err
				}
				typ, err := r.sleb()
				if err != nil {
					return nil, err
				}
				entry.fields = append(entry.fields, fieldType{id: id, typ: typ})
			}
		default:
			return nil, fmt.Errorf("%w: composite opcode %d", ErrTypeMismatch, opcode)
		}
		table = append(table, entry)
	}
	return table, nil
}
