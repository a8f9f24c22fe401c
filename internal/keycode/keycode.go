// Package keycode encodes composite keys into byte strings whose
// lexicographic order matches the order of their components.
//
// Byte strings are escaped so they can be followed by more components:
//
//	0x00 -> 0x00 0xff
//	end  -> 0x00 0x00
//
// For example:
//
//	"ab"        -> [a b 0 0]
//	"a\x00b"    -> [a 0 255 b 0 0]
//
// A string encoded without its terminator (AppendBytesPrefix) is a byte prefix
// of every encoded string that starts with it, which is what prefix scans
// over composite keys rely on. Unsigned integers are fixed-width big endian.
package keycode

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	escape     = byte(0x00)
	escapedNul = byte(0xff)
	terminator = byte(0x00)
)

var (
	ErrTruncated = errors.New("keycode: insufficient bytes to decode value")
	ErrEscape    = errors.New("keycode: invalid escape sequence")
)

// AppendBytes appends the escaped and terminated form of b to dst.
func AppendBytes(dst, b []byte) []byte {
	dst = AppendBytesPrefix(dst, b)
	return append(dst, escape, terminator)
}

// AppendString is AppendBytes for strings.
func AppendString(dst []byte, s string) []byte {
	return AppendBytes(dst, []byte(s))
}

// AppendBytesPrefix appends the escaped form of b without a terminator.
func AppendBytesPrefix(dst, b []byte) []byte {
	for _, c := range b {
		if c == escape {
			dst = append(dst, escape, escapedNul)
			continue
		}
		dst = append(dst, c)
	}
	return dst
}

// AppendUint64 appends v as 8 big endian bytes.
func AppendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// DecodeBytes decodes a string written by AppendBytes from the front of b,
// returning the leftover bytes and the decoded value.
func DecodeBytes(b []byte) ([]byte, []byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != escape {
			out = append(out, c)
			continue
		}
		if i+1 >= len(b) {
			return nil, nil, ErrTruncated
		}
		switch b[i+1] {
		case terminator:
			return b[i+2:], out, nil
		case escapedNul:
			out = append(out, escape)
			i++
		default:
			return nil, nil, errors.Wrapf(ErrEscape, "byte %#x at offset %d", b[i+1], i+1)
		}
	}
	return nil, nil, ErrTruncated
}

// DecodeString is DecodeBytes for strings.
func DecodeString(b []byte) ([]byte, string, error) {
	rest, s, err := DecodeBytes(b)
	if err != nil {
		return nil, "", err
	}
	return rest, string(s), nil
}

// DecodeUint64 decodes 8 big endian bytes from the front of b.
func DecodeUint64(b []byte) ([]byte, uint64, error) {
	if len(b) < 8 {
		return nil, 0, ErrTruncated
	}
	return b[8:], binary.BigEndian.Uint64(b[:8]), nil
}
