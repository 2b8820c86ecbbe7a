package protocol

// ============================================================================
// ApiVersions (API Key 18)
// ============================================================================

// ----------------------------------------------------------------------------
// Request
// ----------------------------------------------------------------------------

// ApiVersionsRequest has no body fields beyond the request header.
type ApiVersionsRequest struct{}

// Decode - the recipe

func DecodeApiVersionsRequest(d *Decoder, v int16) (*ApiVersionsRequest, error) {
	return &ApiVersionsRequest{}, nil
}

// ----------------------------------------------------------------------------
// Response
// ----------------------------------------------------------------------------

type ApiVersionsResponse struct {
	CorrelationID  int32
	ErrorCode      int16
	ApiVersions    []ApiVersion
	ThrottleTimeMs int32
}

// Response Writers

func (r *ApiVersionsResponse) writeHeader(e *Encoder) {
	e.WriteInt32(r.CorrelationID)
	e.WriteInt16(r.ErrorCode)
}

func (r *ApiVersionsResponse) writeApiVersions(e *Encoder) error {
	if err := e.WriteCompactArrayLen(len(r.ApiVersions)); err != nil {
		return err
	}

	for _, v := range r.ApiVersions {
		e.WriteInt16(v.APIKey)
		e.WriteInt16(v.MinVersion)
		e.WriteInt16(v.MaxVersion)
		e.WriteTagBuffer() // per-entry tagged fields
	}
	return nil
}

func (r *ApiVersionsResponse) writeThrottleTime(e *Encoder) {
	e.WriteInt32(r.ThrottleTimeMs)
}

// Encode - the recipe

func EncodeApiVersionsResponse(e *Encoder, r *ApiVersionsResponse) error {
	r.writeHeader(e)
	if err := r.writeApiVersions(e); err != nil {
		return err
	}
	r.writeThrottleTime(e)
	e.WriteTagBuffer()
	return nil
}

func (r *ApiVersionsResponse) Correlation() int32 { return r.CorrelationID }

func (r *ApiVersionsResponse) Encode(e *Encoder) error { return EncodeApiVersionsResponse(e, r) }
