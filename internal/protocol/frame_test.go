package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

func frameBytes(size int32, body []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(size))
	return append(out, body...)
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	payload := []byte("hello frame")
	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if got := binary.BigEndian.Uint32(buf.Bytes()[:4]); got != uint32(len(payload)) {
		t.Fatalf("length prefix %d, want %d", got, len(payload))
	}
	out, err := ReadFrame(&buf, DefaultMaxFrameSize)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mismatch: %q", out)
	}
}

func TestReadFrameMalformedLengthConsumesNoBody(t *testing.T) {
	body := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for _, size := range []int32{0, -1, math.MinInt32, DefaultMaxFrameSize + 1, 2_000_000, math.MaxInt32} {
		r := bytes.NewReader(frameBytes(size, body))
		_, err := ReadFrame(r, DefaultMaxFrameSize)
		if !errors.Is(err, ErrMalformedLength) {
			t.Fatalf("size=%d: expected ErrMalformedLength, got %v", size, err)
		}
		if r.Len() != len(body) {
			t.Fatalf("size=%d: consumed %d body bytes", size, len(body)-r.Len())
		}
	}
}

func TestReadFrameAcceptsMaxSize(t *testing.T) {
	body := bytes.Repeat([]byte{0xab}, 16)
	out, err := ReadFrame(bytes.NewReader(frameBytes(16, body)), 16)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if len(out) != 16 {
		t.Fatalf("got %d bytes", len(out))
	}
}

func TestReadFrameShortBody(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(frameBytes(10, []byte{1, 2, 3})), DefaultMaxFrameSize)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
	if errors.Is(err, ErrMalformedLength) {
		t.Fatalf("short body must not be reported as a malformed length")
	}
}

func TestReadFramePrefixThenEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(frameBytes(10, nil)), DefaultMaxFrameSize)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
	if errors.Is(err, io.EOF) {
		t.Fatalf("early close after size prefix reported as clean EOF: %v", err)
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil), DefaultMaxFrameSize)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestWriteFrameFlushesBufferedWriter(t *testing.T) {
	var sink bytes.Buffer
	w := bufio.NewWriterSize(&sink, 4096)
	if err := WriteFrame(w, []byte{9, 9}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), []byte{0, 0, 0, 2, 9, 9}) {
		t.Fatalf("sink holds % x", sink.Bytes())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteFrameReportsFailure(t *testing.T) {
	if err := WriteFrame(failingWriter{}, []byte{1}); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected io.ErrClosedPipe, got %v", err)
	}
}
