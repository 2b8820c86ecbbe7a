package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ReadFrame reads a single size-prefixed frame from r. The size must be in
// (0, maxSize]; otherwise ErrMalformedLength is returned and no payload
// bytes are consumed. Either a complete frame or an error is returned.
func ReadFrame(r io.Reader, maxSize int32) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("read frame size: %w", err)
	}

	size := int32(binary.BigEndian.Uint32(sizeBuf[:]))
	if size <= 0 || size > maxSize {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrMalformedLength, size, maxSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

type flusher interface {
	Flush() error
}

// WriteFrame writes payload prefixed with its length to w, then flushes w
// when it buffers. Failures are returned, never retried.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > math.MaxInt32 {
		return fmt.Errorf("payload too large: %d", len(payload))
	}
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(payload)))
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("write frame size: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush frame: %w", err)
		}
	}
	return nil
}
