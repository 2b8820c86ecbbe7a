package protocol

import (
	"bytes"
	"testing"
)

func strPtr(s string) *string {
	return &s
}

// requestBody builds a frame body: header followed by whatever body writes.
func requestBody(t *testing.T, apiKey, version int16, correlationID int32, clientID *string, body func(e *Encoder)) []byte {
	t.Helper()
	e := NewEncoder()
	e.WriteInt16(apiKey)
	e.WriteInt16(version)
	e.WriteInt32(correlationID)
	if err := e.WriteNullableString(clientID); err != nil {
		t.Fatalf("write client id: %v", err)
	}
	if body != nil {
		body(e)
	}
	return e.Bytes()
}

func readCompactLen(t *testing.T, d *Decoder) int {
	t.Helper()
	b, err := d.ReadInt8()
	if err != nil {
		t.Fatalf("read compact length: %v", err)
	}
	return int(uint8(b)) - 1
}

func readTag(t *testing.T, d *Decoder) {
	t.Helper()
	b, err := d.ReadInt8()
	if err != nil {
		t.Fatalf("read tag buffer: %v", err)
	}
	if b != 0 {
		t.Fatalf("expected empty tag buffer, got %d", b)
	}
}

func mustInt16(t *testing.T, d *Decoder) int16 {
	t.Helper()
	v, err := d.ReadInt16()
	if err != nil {
		t.Fatalf("read int16: %v", err)
	}
	return v
}

func mustInt32(t *testing.T, d *Decoder) int32 {
	t.Helper()
	v, err := d.ReadInt32()
	if err != nil {
		t.Fatalf("read int32: %v", err)
	}
	return v
}

func expectEnd(t *testing.T, r *bytes.Reader) {
	t.Helper()
	if r.Len() != 0 {
		t.Fatalf("expected end of payload, %d bytes left", r.Len())
	}
}

// decodeApiVersionsResponse is the inverse of EncodeApiVersionsResponse.
func decodeApiVersionsResponse(t *testing.T, payload []byte) *ApiVersionsResponse {
	t.Helper()
	r := bytes.NewReader(payload)
	d := NewDecoder(r)
	resp := &ApiVersionsResponse{
		CorrelationID: mustInt32(t, d),
		ErrorCode:     mustInt16(t, d),
	}
	n := readCompactLen(t, d)
	resp.ApiVersions = make([]ApiVersion, 0, n)
	for i := 0; i < n; i++ {
		v := ApiVersion{APIKey: mustInt16(t, d), MinVersion: mustInt16(t, d), MaxVersion: mustInt16(t, d)}
		readTag(t, d)
		resp.ApiVersions = append(resp.ApiVersions, v)
	}
	resp.ThrottleTimeMs = mustInt32(t, d)
	readTag(t, d)
	expectEnd(t, r)
	return resp
}

// decodeFetchResponse is the inverse of EncodeFetchResponse.
func decodeFetchResponse(t *testing.T, payload []byte) *FetchResponse {
	t.Helper()
	r := bytes.NewReader(payload)
	d := NewDecoder(r)
	resp := &FetchResponse{
		ThrottleTimeMs: mustInt32(t, d),
		CorrelationID:  mustInt32(t, d),
		ErrorCode:      mustInt16(t, d),
		SessionID:      mustInt32(t, d),
	}
	topics := readCompactLen(t, d)
	resp.Topics = make([]FetchResponseTopic, 0, topics)
	for i := 0; i < topics; i++ {
		id, err := d.ReadUUID()
		if err != nil {
			t.Fatalf("read topic id: %v", err)
		}
		topic := FetchResponseTopic{TopicID: id}
		parts := readCompactLen(t, d)
		topic.Partitions = make([]FetchResponsePartition, 0, parts)
		for j := 0; j < parts; j++ {
			p := FetchResponsePartition{PartitionIndex: mustInt32(t, d), ErrorCode: mustInt16(t, d)}
			readTag(t, d)
			topic.Partitions = append(topic.Partitions, p)
		}
		readTag(t, d)
		resp.Topics = append(resp.Topics, topic)
	}
	readTag(t, d)
	expectEnd(t, r)
	return resp
}

func decodeErrorResponse(t *testing.T, payload []byte) *ErrorResponse {
	t.Helper()
	r := bytes.NewReader(payload)
	d := NewDecoder(r)
	resp := &ErrorResponse{CorrelationID: mustInt32(t, d), ErrorCode: mustInt16(t, d)}
	expectEnd(t, r)
	return resp
}
