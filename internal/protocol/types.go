package protocol

import "github.com/google/uuid"

// API Keys
const (
	APIKeyFetch       int16 = 1
	APIKeyApiVersions int16 = 18
)

// Wire limits
const (
	// DefaultMaxFrameSize bounds the payload of a single request frame.
	DefaultMaxFrameSize int32 = 1_000_000

	// MaxCompactArrayLen is the largest element count a single-byte
	// compact array length (count+1) can carry.
	MaxCompactArrayLen = 254
)

// RequestHeader represents the common request header
type RequestHeader struct {
	APIKey        int16
	APIVersion    int16
	CorrelationID int32
	ClientID      *string // nil when the client sent a null client id
}

// ClientName returns the client id, or "" when absent.
func (h RequestHeader) ClientName() string {
	if h.ClientID == nil {
		return ""
	}
	return *h.ClientID
}

// ApiVersion represents a supported API version range
type ApiVersion struct {
	APIKey     int16
	MinVersion int16
	MaxVersion int16
}

// TopicID is the 128-bit topic identifier carried by fetch requests.
type TopicID = uuid.UUID

// Response is an encodable response value bound to one request.
type Response interface {
	Correlation() int32
	Encode(e *Encoder) error
}
