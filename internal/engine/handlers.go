package engine

import (
	"context"
	"fmt"

	"github.com/rizkyandriawan/monowire/internal/protocol"
)

func (e *Engine) apis() []protocol.API {
	return []protocol.API{
		{
			Key:        protocol.APIKeyApiVersions,
			Name:       "ApiVersions",
			MinVersion: 4,
			MaxVersion: 4,
			Advertised: true,
			Decode: func(d *protocol.Decoder, v int16) (any, error) {
				return protocol.DecodeApiVersionsRequest(d, v)
			},
			Handle: e.handleApiVersions,
		},
		{
			Key:        protocol.APIKeyFetch,
			Name:       "Fetch",
			MinVersion: 0,
			MaxVersion: 16,
			Advertised: e.config.Protocol.AdvertiseFetch,
			Decode: func(d *protocol.Decoder, v int16) (any, error) {
				return protocol.DecodeFetchRequest(d, v)
			},
			Handle: e.handleFetch,
		},
	}
}

func (e *Engine) handleApiVersions(_ context.Context, h protocol.RequestHeader, _ any) (protocol.Response, error) {
	return &protocol.ApiVersionsResponse{
		CorrelationID:  h.CorrelationID,
		ErrorCode:      protocol.CodeNone,
		ApiVersions:    e.registry.Versions(),
		ThrottleTimeMs: 0,
	}, nil
}

// handleFetch answers without records: there is no log to read from. The
// session id is echoed and max_wait_ms is not honored.
func (e *Engine) handleFetch(_ context.Context, h protocol.RequestHeader, req any) (protocol.Response, error) {
	r, ok := req.(*protocol.FetchRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T", req)
	}

	if ev := e.logger.Debug(); ev.Enabled() {
		partitions := 0
		topics := make([]string, 0, len(r.Topics))
		for _, t := range r.Topics {
			topics = append(topics, t.TopicID.String())
			partitions += len(t.Partitions)
		}
		ev.Int32("correlation_id", h.CorrelationID).
			Int16("api_version", h.APIVersion).
			Strs("topic_ids", topics).
			Int("partitions", partitions).
			Int("forgotten_topics", len(r.ForgottenTopics)).
			Int32("session_id", r.SessionID).
			Str("rack_id", r.RackID).
			Msg("fetch")
	}

	return &protocol.FetchResponse{
		ThrottleTimeMs: 0,
		CorrelationID:  h.CorrelationID,
		ErrorCode:      protocol.CodeNone,
		SessionID:      r.SessionID,
		Topics:         []protocol.FetchResponseTopic{},
	}, nil
}
