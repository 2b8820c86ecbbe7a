package protocol

import (
	"context"
	"fmt"
)

// Dispatcher routes decoded headers to the registered API.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch checks the key and version against the registry, decodes the
// body from d and invokes the handler. Every failure is returned as an
// error that ErrorCode can classify; the caller answers with an
// ErrorResponse carrying the request's correlation id.
func (p *Dispatcher) Dispatch(ctx context.Context, header RequestHeader, d *Decoder) (Response, error) {
	api, ok := p.registry.Lookup(header.APIKey)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAPIKey, header.APIKey)
	}
	if !api.Supports(header.APIVersion) {
		return nil, fmt.Errorf("%w: %s v%d (supported %d-%d)",
			ErrUnsupportedVersion, api.Name, header.APIVersion, api.MinVersion, api.MaxVersion)
	}
	if api.Decode == nil || api.Handle == nil {
		return nil, fmt.Errorf("%s: %w", api.Name, ErrNotImplemented)
	}

	req, err := api.Decode(d, header.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("decode %s request: %w", api.Name, err)
	}

	resp, err := api.Handle(ctx, header, req)
	if err != nil {
		return nil, fmt.Errorf("handle %s: %w", api.Name, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("handle %s: no response", api.Name)
	}
	return resp, nil
}

// Respond runs Dispatch and converts any failure into an ErrorResponse.
// The returned error is the original failure, for logging.
func (p *Dispatcher) Respond(ctx context.Context, header RequestHeader, d *Decoder) (Response, error) {
	resp, err := p.Dispatch(ctx, header, d)
	if err != nil {
		return NewErrorResponse(header.CorrelationID, err), err
	}
	return resp, nil
}

// EncodeResponse encodes resp into a standalone payload. If resp cannot be
// represented on the wire, an UNKNOWN_SERVER_ERROR response for the same
// correlation id is encoded instead and the encoding error is returned.
func EncodeResponse(resp Response) ([]byte, error) {
	e := NewEncoder()
	err := resp.Encode(e)
	if err == nil {
		return e.Bytes(), nil
	}
	e.Reset()
	fallback := &ErrorResponse{CorrelationID: resp.Correlation(), ErrorCode: CodeUnknownServerError}
	_ = fallback.Encode(e)
	return e.Bytes(), fmt.Errorf("encode response: %w", err)
}
