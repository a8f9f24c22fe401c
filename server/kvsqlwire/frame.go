package kvsqlwire

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

const (
	// MaxFrameSize limits memory usage on malformed/hostile input.
	MaxFrameSize = 8 << 20 // 8 MiB
)

var (
	ErrEmptyFrame    = errors.New("kvsqlwire: empty frame")
	ErrFrameTooLarge = errors.New("kvsqlwire: frame too large")
)

// ReadFrame reads a single length-prefixed JSON frame. A connection closed
// cleanly between frames yields io.EOF.
func ReadFrame(r io.Reader, v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return ErrEmptyFrame
	}
	if n > MaxFrameSize {
		return errors.Wrapf(ErrFrameTooLarge, "%d > %d", n, MaxFrameSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Wrap(err, "kvsqlwire: read body")
	}

	if err := json.Unmarshal(buf, v); err != nil {
		return errors.Wrap(err, "kvsqlwire: bad json")
	}
	return nil
}

// WriteFrame writes v as a length-prefixed JSON frame in a single write.
func WriteFrame(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "kvsqlwire: marshal")
	}
	if len(b) > MaxFrameSize {
		return errors.Wrapf(ErrFrameTooLarge, "%d > %d", len(b), MaxFrameSize)
	}

	frame := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(frame, uint32(len(b)))
	copy(frame[4:], b)
	_, err = w.Write(frame)
	return err
}
