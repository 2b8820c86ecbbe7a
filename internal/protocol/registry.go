package protocol

import (
	"context"
	"fmt"
)

// DecodeFunc decodes an API-specific request body.
type DecodeFunc func(d *Decoder, version int16) (any, error)

// HandlerFunc serves a decoded request.
type HandlerFunc func(ctx context.Context, header RequestHeader, req any) (Response, error)

// API describes one supported request type.
type API struct {
	Key        int16
	Name       string
	MinVersion int16
	MaxVersion int16
	Advertised bool // listed in ApiVersions responses
	Decode     DecodeFunc
	Handle     HandlerFunc
}

// Supports reports whether version is within [MinVersion, MaxVersion].
func (a API) Supports(version int16) bool {
	return version >= a.MinVersion && version <= a.MaxVersion
}

// Registry maps API keys to their capabilities. It is immutable once built
// and safe for concurrent use.
type Registry struct {
	apis  map[int16]API
	order []int16
}

// NewRegistry builds a registry, rejecting duplicate keys and inverted
// version ranges.
func NewRegistry(apis ...API) (*Registry, error) {
	r := &Registry{apis: make(map[int16]API, len(apis))}
	for _, api := range apis {
		if _, dup := r.apis[api.Key]; dup {
			return nil, fmt.Errorf("duplicate api key %d (%s)", api.Key, api.Name)
		}
		if api.MinVersion > api.MaxVersion {
			return nil, fmt.Errorf("api %s: min version %d > max version %d", api.Name, api.MinVersion, api.MaxVersion)
		}
		r.apis[api.Key] = api
		r.order = append(r.order, api.Key)
	}
	return r, nil
}

// Lookup returns the API registered for key.
func (r *Registry) Lookup(key int16) (API, bool) {
	api, ok := r.apis[key]
	return api, ok
}

// Name returns a printable name for key.
func (r *Registry) Name(key int16) string {
	if api, ok := r.apis[key]; ok {
		return api.Name
	}
	return fmt.Sprintf("Unknown(%d)", key)
}

// Versions returns the advertised version ranges in registration order.
func (r *Registry) Versions() []ApiVersion {
	out := make([]ApiVersion, 0, len(r.order))
	for _, key := range r.order {
		api := r.apis[key]
		if !api.Advertised {
			continue
		}
		out = append(out, ApiVersion{APIKey: api.Key, MinVersion: api.MinVersion, MaxVersion: api.MaxVersion})
	}
	return out
}
