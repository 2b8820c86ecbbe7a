package protocol

// ErrorResponse is sent in place of an API response when a request with a
// trustworthy header cannot be served.
type ErrorResponse struct {
	CorrelationID int32
	ErrorCode     int16
}

// NewErrorResponse maps err to its protocol code for the given request.
func NewErrorResponse(correlationID int32, err error) *ErrorResponse {
	return &ErrorResponse{CorrelationID: correlationID, ErrorCode: ErrorCode(err)}
}

func EncodeErrorResponse(e *Encoder, r *ErrorResponse) error {
	e.WriteInt32(r.CorrelationID)
	e.WriteInt16(r.ErrorCode)
	return nil
}

func (r *ErrorResponse) Correlation() int32 { return r.CorrelationID }

func (r *ErrorResponse) Encode(e *Encoder) error { return EncodeErrorResponse(e, r) }
