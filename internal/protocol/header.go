package protocol

import (
	"bytes"
	"fmt"
)

// ReadHeader reads a request header: api key, api version, correlation id
// and a nullable client id, in that order.
func (d *Decoder) ReadHeader() (RequestHeader, error) {
	var h RequestHeader
	var err error

	h.APIKey, err = d.ReadInt16()
	if err != nil {
		return h, fmt.Errorf("api key: %w", err)
	}

	h.APIVersion, err = d.ReadInt16()
	if err != nil {
		return h, fmt.Errorf("api version: %w", err)
	}

	h.CorrelationID, err = d.ReadInt32()
	if err != nil {
		return h, fmt.Errorf("correlation id: %w", err)
	}

	h.ClientID, err = d.ReadNullableString()
	if err != nil {
		return h, fmt.Errorf("client id: %w", err)
	}

	return h, nil
}

// ParseHeader decodes the header at the front of a frame and returns a
// decoder positioned at the start of the API-specific body.
func ParseHeader(frame []byte) (RequestHeader, *Decoder, error) {
	d := NewDecoder(bytes.NewReader(frame))
	h, err := d.ReadHeader()
	if err != nil {
		return h, nil, err
	}
	return h, d, nil
}
