package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/twmb/franz-go/pkg/kmsg"
)

func TestEncodeApiVersionsResponseBytes(t *testing.T) {
	resp := &ApiVersionsResponse{
		CorrelationID: 7,
		ApiVersions:   []ApiVersion{{APIKey: APIKeyApiVersions, MinVersion: 4, MaxVersion: 4}},
	}
	e := NewEncoder()
	if err := EncodeApiVersionsResponse(e, resp); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := []byte{
		0x00, 0x00, 0x00, 0x07, // correlation id
		0x00, 0x00, // error code
		0x02,                               // compact array: 1 entry
		0x00, 0x12, 0x00, 0x04, 0x00, 0x04, // {18, 4, 4}
		0x00,                   // entry tags
		0x00, 0x00, 0x00, 0x00, // throttle time
		0x00, // response tags
	}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("encoded bytes mismatch:\n got=% x\nwant=% x", e.Bytes(), want)
	}
}

func TestApiVersionsResponseReadableByKafkaClients(t *testing.T) {
	resp := &ApiVersionsResponse{
		CorrelationID:  42,
		ThrottleTimeMs: 15,
		ApiVersions: []ApiVersion{
			{APIKey: APIKeyApiVersions, MinVersion: 4, MaxVersion: 4},
			{APIKey: APIKeyFetch, MinVersion: 0, MaxVersion: 16},
		},
	}
	payload, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// ApiVersions responses use header v0: the correlation id alone
	// precedes the body.
	got := kmsg.NewPtrApiVersionsResponse()
	got.Version = 4
	if err := got.ReadFrom(payload[4:]); err != nil {
		t.Fatalf("kmsg could not read response: %v", err)
	}
	if got.ErrorCode != 0 || got.ThrottleMillis != 15 {
		t.Fatalf("unexpected body: code=%d throttle=%d", got.ErrorCode, got.ThrottleMillis)
	}
	if len(got.ApiKeys) != 2 {
		t.Fatalf("expected 2 api keys, got %d", len(got.ApiKeys))
	}
	if k := got.ApiKeys[1]; k.ApiKey != 1 || k.MinVersion != 0 || k.MaxVersion != 16 {
		t.Fatalf("unexpected fetch entry: %+v", k)
	}
}

func TestDecodeApiVersionsRequestFromKafkaClient(t *testing.T) {
	req := kmsg.NewPtrApiVersionsRequest()
	req.Version = 4
	req.ClientSoftwareName = "kafka-cli"
	req.ClientSoftwareVersion = "1.0"

	formatter := kmsg.NewRequestFormatter(kmsg.FormatterClientID("kafka-cli"))
	frame := formatter.AppendRequest(nil, req, 7)

	payload, err := ReadFrame(bytes.NewReader(frame), DefaultMaxFrameSize)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	h, d, err := ParseHeader(payload)
	if err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if h.APIKey != APIKeyApiVersions || h.APIVersion != 4 || h.CorrelationID != 7 || h.ClientName() != "kafka-cli" {
		t.Fatalf("unexpected header: %+v (client %q)", h, h.ClientName())
	}
	if _, err := DecodeApiVersionsRequest(d, h.APIVersion); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestApiVersionsResponseTooManyEntries(t *testing.T) {
	versions := make([]ApiVersion, MaxCompactArrayLen+1)
	resp := &ApiVersionsResponse{CorrelationID: 9, ApiVersions: versions}

	if err := EncodeApiVersionsResponse(NewEncoder(), resp); !errors.Is(err, ErrArrayTooLong) {
		t.Fatalf("expected ErrArrayTooLong, got %v", err)
	}

	payload, err := EncodeResponse(resp)
	if !errors.Is(err, ErrArrayTooLong) {
		t.Fatalf("expected ErrArrayTooLong from EncodeResponse, got %v", err)
	}
	fallback := decodeErrorResponse(t, payload)
	if fallback.CorrelationID != 9 || fallback.ErrorCode != CodeUnknownServerError {
		t.Fatalf("unexpected fallback: %+v", fallback)
	}
}

func TestApiVersionsResponseAtCompactLimit(t *testing.T) {
	versions := make([]ApiVersion, MaxCompactArrayLen)
	for i := range versions {
		versions[i] = ApiVersion{APIKey: int16(i), MaxVersion: 1}
	}
	payload, err := EncodeResponse(&ApiVersionsResponse{CorrelationID: 1, ApiVersions: versions})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := decodeApiVersionsResponse(t, payload)
	if len(got.ApiVersions) != MaxCompactArrayLen {
		t.Fatalf("expected %d entries, got %d", MaxCompactArrayLen, len(got.ApiVersions))
	}
	if got.ApiVersions[253].APIKey != 253 {
		t.Fatalf("last entry out of order: %+v", got.ApiVersions[253])
	}
}
