package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

var (
	ErrInsufficientData = fmt.Errorf("%w: insufficient data", ErrCorruptMessage)
	ErrInvalidString    = fmt.Errorf("%w: invalid string", ErrCorruptMessage)
	ErrInvalidArrayLen  = fmt.Errorf("%w: invalid array length", ErrCorruptMessage)
)

// Decoder reads Kafka protocol data
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder creates a new decoder
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, buf: make([]byte, 16)}
}

func (d *Decoder) fill(n int) ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrInsufficientData
		}
		return nil, err
	}
	return d.buf[:n], nil
}

func (d *Decoder) ReadInt8() (int8, error) {
	b, err := d.fill(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (d *Decoder) ReadInt16() (int16, error) {
	b, err := d.fill(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (d *Decoder) ReadInt32() (int32, error) {
	b, err := d.fill(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (d *Decoder) ReadInt64() (int64, error) {
	b, err := d.fill(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// ReadUUID reads a 128-bit identifier, most significant byte first.
func (d *Decoder) ReadUUID() (TopicID, error) {
	var id TopicID
	b, err := d.fill(16)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// ReadNullableString reads an int16-length prefixed string. A length of -1
// is a null string; any other negative length is corrupt.
func (d *Decoder) ReadNullableString() (*string, error) {
	length, err := d.ReadInt16()
	if err != nil {
		return nil, err
	}
	if length == -1 {
		return nil, nil
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidString, length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, ErrInsufficientData
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not utf-8", ErrInvalidString)
	}
	s := string(data)
	return &s, nil
}

// ReadArrayLen reads an int32 element count. Negative counts are corrupt.
func (d *Decoder) ReadArrayLen() (int32, error) {
	n, err := d.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidArrayLen, n)
	}
	return n, nil
}

// ReadTagBuffer consumes the single reserved tagged-fields byte.
func (d *Decoder) ReadTagBuffer() error {
	_, err := d.fill(1)
	return err
}

// Encoder writes Kafka protocol data
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new encoder
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 1024)}
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) Len() int {
	return len(e.buf)
}

func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

func (e *Encoder) WriteInt8(v int8) {
	e.buf = append(e.buf, byte(v))
}

func (e *Encoder) WriteInt16(v int16) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(v))
}

func (e *Encoder) WriteInt32(v int32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(v))
}

func (e *Encoder) WriteInt64(v int64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v))
}

func (e *Encoder) WriteUUID(id TopicID) {
	e.buf = append(e.buf, id[:]...)
}

// WriteNullableString writes nil as length -1 with no payload.
func (e *Encoder) WriteNullableString(s *string) error {
	if s == nil {
		e.WriteInt16(-1)
		return nil
	}
	if len(*s) > math.MaxInt16 {
		return fmt.Errorf("%w: length %d", ErrInvalidString, len(*s))
	}
	e.WriteInt16(int16(len(*s)))
	e.buf = append(e.buf, *s...)
	return nil
}

// WriteCompactArrayLen writes n+1 as a single byte. Counts above
// MaxCompactArrayLen do not fit and are rejected.
func (e *Encoder) WriteCompactArrayLen(n int) error {
	if n < 0 || n > MaxCompactArrayLen {
		return fmt.Errorf("%w: %d elements", ErrArrayTooLong, n)
	}
	e.buf = append(e.buf, byte(n+1))
	return nil
}

// WriteTagBuffer writes an empty tagged fields section
func (e *Encoder) WriteTagBuffer() {
	e.buf = append(e.buf, 0)
}
