package logstore

import (
	"bufio"
	"hash/crc32"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/tuannm99/kvsql/internal/alias/bx"
)

var (
	ErrBadMagic  = errors.New("logstore: bad magic")
	ErrBadCRC    = errors.New("logstore: bad crc")
	ErrBadRecord = errors.New("logstore: bad record")
	ErrShortRead = errors.New("logstore: short read")
)

const (
	magicU32 uint32 = 0x4C51534B // "KSQL"

	// magic(4) crc(4) keyLen(4) valLen(4)
	headerSize = 16

	tombstoneLen = math.MaxUint32
	maxKeyLen    = 1 << 20
	maxValueLen  = math.MaxUint32 - 1
)

// record is one decoded log entry. A nil value with tombstone set marks a delete.
type record struct {
	key       []byte
	value     []byte
	tombstone bool
}

func (r *record) size() int64 {
	return int64(headerSize + len(r.key) + len(r.value))
}

// encodeRecord lays out a record as
//
//	magic(4) crc(4) keyLen(4) valLen(4) key value
//
// The crc covers everything after the crc field.
func encodeRecord(key, value []byte, tombstone bool) ([]byte, error) {
	if len(key) > maxKeyLen {
		return nil, errors.Wrapf(ErrBadRecord, "key too large: %d", len(key))
	}
	if uint64(len(value)) > maxValueLen {
		return nil, errors.Wrapf(ErrBadRecord, "value too large: %d", len(value))
	}

	buf := make([]byte, headerSize+len(key)+len(value))
	bx.PutU32(buf[0:4], magicU32)
	bx.PutU32(buf[8:12], uint32(len(key)))
	if tombstone {
		bx.PutU32(buf[12:16], tombstoneLen)
	} else {
		bx.PutU32(buf[12:16], uint32(len(value)))
	}
	copy(buf[headerSize:], key)
	copy(buf[headerSize+len(key):], value)

	bx.PutU32(buf[4:8], crc32.ChecksumIEEE(buf[8:]))
	return buf, nil
}

// readRecord reads the next record. It returns io.EOF only at a clean record
// boundary; a torn record yields ErrShortRead.
func readRecord(r *bufio.Reader) (*record, error) {
	var hdr [headerSize]byte
	n, err := io.ReadFull(r, hdr[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return nil, io.EOF
		}
		return nil, ErrShortRead
	}
	if bx.U32(hdr[0:4]) != magicU32 {
		return nil, ErrBadMagic
	}
	wantCRC := bx.U32(hdr[4:8])
	keyLen := bx.U32(hdr[8:12])
	valLen := bx.U32(hdr[12:16])
	if keyLen > maxKeyLen {
		return nil, ErrBadRecord
	}

	tombstone := valLen == tombstoneLen
	bodyLen := int(keyLen)
	if !tombstone {
		bodyLen += int(valLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, ErrShortRead
	}

	crc := crc32.NewIEEE()
	_, _ = crc.Write(hdr[8:])
	_, _ = crc.Write(body)
	if crc.Sum32() != wantCRC {
		return nil, ErrBadCRC
	}

	rec := &record{key: body[:keyLen], tombstone: tombstone}
	if !tombstone {
		rec.value = body[keyLen:]
	}
	return rec, nil
}
