package record

import (
	"math"

	"github.com/pkg/errors"

	"github.com/tuannm99/kvsql/internal/alias/bx"
)

var (
	ErrSchemaMismatch  = errors.New("rowcodec: schema/values mismatch")
	ErrBadBuffer       = errors.New("rowcodec: buffer underflow/overflow")
	ErrVarTooLong      = errors.New("rowcodec: variable length exceeds u32")
	ErrUnsupportedType = errors.New("rowcodec: unsupported type")
)

// EncodeRow serialises row against the table's columns.
//
// Format:
//
//	[nullmap: ceil(N/8) bytes, bit=1 => NULL] [field0 data?] [field1 data?] ...
//
// BOOLEAN is 1 byte, INTEGER and FLOAT are 8 bytes LE, STRING is a u32 LE
// length followed by UTF-8 bytes. NULL fields take no data bytes.
func EncodeRow(t *Table, row Row) ([]byte, error) {
	nc := t.NumCols()
	if len(row) != nc {
		return nil, errors.Wrapf(ErrSchemaMismatch, "%d values for %d columns", len(row), nc)
	}

	out := make([]byte, (nc+7)/8)
	for i, col := range t.Columns {
		v := row[i]
		if v.Null {
			if !col.Nullable {
				return nil, errors.Wrapf(ErrSchemaMismatch, "NULL in non-nullable column %s", col.Name)
			}
			out[i/8] |= 1 << (uint(i) & 7)
			continue
		}
		if v.Type != col.Type {
			return nil, errors.Wrapf(ErrSchemaMismatch, "%s value for %s column %s", v.Type, col.Type, col.Name)
		}

		switch col.Type {
		case TypeBoolean:
			if v.B {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}

		case TypeInteger:
			var b [8]byte
			bx.PutU64(b[:], uint64(v.I))
			out = append(out, b[:]...)

		case TypeFloat:
			var b [8]byte
			bx.PutU64(b[:], math.Float64bits(v.F))
			out = append(out, b[:]...)

		case TypeString:
			if uint64(len(v.S)) > math.MaxUint32 {
				return nil, ErrVarTooLong
			}
			var l [4]byte
			bx.PutU32(l[:], uint32(len(v.S)))
			out = append(out, l[:]...)
			out = append(out, v.S...)

		default:
			return nil, errors.Wrapf(ErrUnsupportedType, "column %s", col.Name)
		}
	}
	return out, nil
}

// DecodeRow is the inverse of EncodeRow.
func DecodeRow(t *Table, buf []byte) (Row, error) {
	nc := t.NumCols()
	nbBytes := (nc + 7) / 8
	if len(buf) < nbBytes {
		return nil, ErrBadBuffer
	}
	nullmap := buf[:nbBytes]
	i := nbBytes

	out := make(Row, nc)
	for colIdx, col := range t.Columns {
		if (nullmap[colIdx/8]>>(uint(colIdx)&7))&1 == 1 {
			out[colIdx] = Null()
			continue
		}

		switch col.Type {
		case TypeBoolean:
			if i+1 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[colIdx] = Bool(buf[i] != 0)
			i++

		case TypeInteger:
			if i+8 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[colIdx] = Int(bx.I64(buf[i : i+8]))
			i += 8

		case TypeFloat:
			if i+8 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[colIdx] = Float(math.Float64frombits(bx.U64(buf[i : i+8])))
			i += 8

		case TypeString:
			if i+4 > len(buf) {
				return nil, ErrBadBuffer
			}
			l := int(bx.U32(buf[i : i+4]))
			i += 4
			if l < 0 || i+l > len(buf) {
				return nil, ErrBadBuffer
			}
			out[colIdx] = String(string(buf[i : i+l]))
			i += l

		default:
			return nil, errors.Wrapf(ErrUnsupportedType, "column %s", col.Name)
		}
	}
	if i != len(buf) {
		return nil, errors.Wrapf(ErrBadBuffer, "%d trailing bytes", len(buf)-i)
	}
	return out, nil
}
