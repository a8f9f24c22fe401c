package mvcc

import (
	"github.com/pkg/errors"

	"github.com/tuannm99/kvsql/internal/keycode"
)

// Raw key tags. Every key the MVCC layer writes to the store starts with one.
const (
	tagNextVersion byte = 0x01
	tagTxnActive   byte = 0x02
	tagTxnWrite    byte = 0x03
	tagVersion     byte = 0x04
)

// Version value kinds.
const (
	kindTombstone byte = 0x00
	kindValue     byte = 0x01
)

var errBadKey = errors.New("mvcc: malformed key")

func nextVersionKey() []byte { return []byte{tagNextVersion} }

func txnActiveKey(v uint64) []byte {
	return keycode.AppendUint64([]byte{tagTxnActive}, v)
}

func txnActivePrefix() []byte { return []byte{tagTxnActive} }

func txnWriteKey(v uint64, key []byte) []byte {
	b := keycode.AppendUint64([]byte{tagTxnWrite}, v)
	return keycode.AppendBytes(b, key)
}

func txnWritePrefix(v uint64) []byte {
	return keycode.AppendUint64([]byte{tagTxnWrite}, v)
}

func txnWriteAllPrefix() []byte { return []byte{tagTxnWrite} }

func versionKey(key []byte, v uint64) []byte {
	b := keycode.AppendBytes([]byte{tagVersion}, key)
	return keycode.AppendUint64(b, v)
}

// versionKeyPrefix covers every version of exactly key.
func versionKeyPrefix(key []byte) []byte {
	return keycode.AppendBytes([]byte{tagVersion}, key)
}

// versionScanPrefix covers every version of every key starting with prefix.
func versionScanPrefix(prefix []byte) []byte {
	return keycode.AppendBytesPrefix([]byte{tagVersion}, prefix)
}

func decodeTxnActiveKey(raw []byte) (uint64, error) {
	if len(raw) == 0 || raw[0] != tagTxnActive {
		return 0, errors.Wrapf(errBadKey, "not a TxnActive key: %x", raw)
	}
	rest, v, err := keycode.DecodeUint64(raw[1:])
	if err != nil {
		return 0, err
	}
	if len(rest) != 0 {
		return 0, errors.Wrapf(errBadKey, "trailing bytes in TxnActive key: %x", raw)
	}
	return v, nil
}

func decodeTxnWriteKey(raw []byte) (uint64, []byte, error) {
	if len(raw) == 0 || raw[0] != tagTxnWrite {
		return 0, nil, errors.Wrapf(errBadKey, "not a TxnWrite key: %x", raw)
	}
	rest, v, err := keycode.DecodeUint64(raw[1:])
	if err != nil {
		return 0, nil, err
	}
	rest, key, err := keycode.DecodeBytes(rest)
	if err != nil {
		return 0, nil, err
	}
	if len(rest) != 0 {
		return 0, nil, errors.Wrapf(errBadKey, "trailing bytes in TxnWrite key: %x", raw)
	}
	return v, key, nil
}

func decodeVersionKey(raw []byte) ([]byte, uint64, error) {
	if len(raw) == 0 || raw[0] != tagVersion {
		return nil, 0, errors.Wrapf(errBadKey, "not a Version key: %x", raw)
	}
	rest, key, err := keycode.DecodeBytes(raw[1:])
	if err != nil {
		return nil, 0, err
	}
	rest, v, err := keycode.DecodeUint64(rest)
	if err != nil {
		return nil, 0, err
	}
	if len(rest) != 0 {
		return nil, 0, errors.Wrapf(errBadKey, "trailing bytes in Version key: %x", raw)
	}
	return key, v, nil
}

func encodeVersionValue(value []byte, tombstone bool) []byte {
	if tombstone {
		return []byte{kindTombstone}
	}
	out := make([]byte, 1+len(value))
	out[0] = kindValue
	copy(out[1:], value)
	return out
}

// decodeVersionValue returns the value and whether it is present. A tombstone
// decodes to (nil, false).
func decodeVersionValue(raw []byte) ([]byte, bool, error) {
	if len(raw) == 0 {
		return nil, false, errors.Wrap(errBadKey, "empty version value")
	}
	switch raw[0] {
	case kindTombstone:
		return nil, false, nil
	case kindValue:
		return raw[1:], true, nil
	default:
		return nil, false, errors.Wrapf(errBadKey, "unknown version kind %#x", raw[0])
	}
}
