package protocol

import "fmt"

// ============================================================================
// Fetch (API Key 1)
// One body layout is decoded for every accepted version.
// ============================================================================

// ----------------------------------------------------------------------------
// Request
// ----------------------------------------------------------------------------

type FetchRequest struct {
	MaxWaitMs       int32
	MinBytes        int32
	MaxBytes        int32
	IsolationLevel  int8
	SessionID       int32
	SessionEpoch    int32
	Topics          []FetchRequestTopic
	ForgottenTopics []FetchForgottenTopic
	RackID          string
}

type FetchRequestTopic struct {
	TopicID    TopicID
	Partitions []FetchRequestPartition
}

type FetchRequestPartition struct {
	Partition          int32
	CurrentLeaderEpoch int32
	FetchOffset        int64
	LastFetchedEpoch   int32
	LogStartOffset     int64
	PartitionMaxBytes  int32
}

type FetchForgottenTopic struct {
	TopicID    TopicID
	Partitions []int32
}

// Counts come off the wire, so slices grow by append instead of being
// sized up front.
func initialCap(n int32) int {
	if n > 64 {
		return 64
	}
	return int(n)
}

// Request Readers

func (r *FetchRequest) readScalars(d *Decoder) error {
	var err error
	if r.MaxWaitMs, err = d.ReadInt32(); err != nil {
		return err
	}
	if r.MinBytes, err = d.ReadInt32(); err != nil {
		return err
	}
	if r.MaxBytes, err = d.ReadInt32(); err != nil {
		return err
	}
	if r.IsolationLevel, err = d.ReadInt8(); err != nil {
		return err
	}
	if r.SessionID, err = d.ReadInt32(); err != nil {
		return err
	}
	r.SessionEpoch, err = d.ReadInt32()
	return err
}

func (r *FetchRequest) readTopics(d *Decoder) error {
	count, err := d.ReadArrayLen()
	if err != nil {
		return fmt.Errorf("topic count: %w", err)
	}
	r.Topics = make([]FetchRequestTopic, 0, initialCap(count))

	for i := int32(0); i < count; i++ {
		var t FetchRequestTopic
		if err := t.readFrom(d); err != nil {
			return fmt.Errorf("topic %d: %w", i, err)
		}
		r.Topics = append(r.Topics, t)
	}
	return d.ReadTagBuffer()
}

func (t *FetchRequestTopic) readFrom(d *Decoder) error {
	var err error
	if t.TopicID, err = d.ReadUUID(); err != nil {
		return err
	}

	count, err := d.ReadArrayLen()
	if err != nil {
		return fmt.Errorf("partition count: %w", err)
	}
	t.Partitions = make([]FetchRequestPartition, 0, initialCap(count))

	for i := int32(0); i < count; i++ {
		var p FetchRequestPartition
		if err := p.readFrom(d); err != nil {
			return fmt.Errorf("partition %d: %w", i, err)
		}
		t.Partitions = append(t.Partitions, p)
	}
	return nil
}

func (p *FetchRequestPartition) readFrom(d *Decoder) error {
	var err error
	if p.Partition, err = d.ReadInt32(); err != nil {
		return err
	}
	if p.CurrentLeaderEpoch, err = d.ReadInt32(); err != nil {
		return err
	}
	if p.FetchOffset, err = d.ReadInt64(); err != nil {
		return err
	}
	if p.LastFetchedEpoch, err = d.ReadInt32(); err != nil {
		return err
	}
	if p.LogStartOffset, err = d.ReadInt64(); err != nil {
		return err
	}
	if p.PartitionMaxBytes, err = d.ReadInt32(); err != nil {
		return err
	}
	return d.ReadTagBuffer() // per-partition tagged fields
}

func (r *FetchRequest) readForgottenTopics(d *Decoder) error {
	count, err := d.ReadArrayLen()
	if err != nil {
		return fmt.Errorf("forgotten topic count: %w", err)
	}
	r.ForgottenTopics = make([]FetchForgottenTopic, 0, initialCap(count))

	for i := int32(0); i < count; i++ {
		var t FetchForgottenTopic
		if t.TopicID, err = d.ReadUUID(); err != nil {
			return err
		}
		partCount, err := d.ReadArrayLen()
		if err != nil {
			return fmt.Errorf("forgotten topic %d partition count: %w", i, err)
		}
		t.Partitions = make([]int32, 0, initialCap(partCount))
		for j := int32(0); j < partCount; j++ {
			p, err := d.ReadInt32()
			if err != nil {
				return err
			}
			t.Partitions = append(t.Partitions, p)
		}
		r.ForgottenTopics = append(r.ForgottenTopics, t)
	}
	return d.ReadTagBuffer()
}

func (r *FetchRequest) readRackID(d *Decoder) error {
	rack, err := d.ReadNullableString()
	if err != nil {
		return fmt.Errorf("rack id: %w", err)
	}
	if rack != nil {
		r.RackID = *rack
	}
	return nil
}

// Decode - the recipe

func DecodeFetchRequest(d *Decoder, v int16) (*FetchRequest, error) {
	r := &FetchRequest{}

	if err := r.readScalars(d); err != nil {
		return nil, err
	}
	if err := r.readTopics(d); err != nil {
		return nil, err
	}
	if err := r.readForgottenTopics(d); err != nil {
		return nil, err
	}
	if err := r.readRackID(d); err != nil {
		return nil, err
	}

	return r, nil
}

// ----------------------------------------------------------------------------
// Response
// ----------------------------------------------------------------------------

type FetchResponse struct {
	ThrottleTimeMs int32
	CorrelationID  int32
	ErrorCode      int16
	SessionID      int32
	Topics         []FetchResponseTopic
}

type FetchResponseTopic struct {
	TopicID    TopicID
	Partitions []FetchResponsePartition
}

type FetchResponsePartition struct {
	PartitionIndex int32
	ErrorCode      int16
}

// Response Writers

func (r *FetchResponse) writeHeader(e *Encoder) {
	e.WriteInt32(r.ThrottleTimeMs)
	e.WriteInt32(r.CorrelationID)
	e.WriteInt16(r.ErrorCode)
	e.WriteInt32(r.SessionID)
}

func (r *FetchResponse) writeTopics(e *Encoder) error {
	if err := e.WriteCompactArrayLen(len(r.Topics)); err != nil {
		return fmt.Errorf("topics: %w", err)
	}

	for _, t := range r.Topics {
		if err := t.writeTo(e); err != nil {
			return err
		}
	}
	return nil
}

func (t *FetchResponseTopic) writeTo(e *Encoder) error {
	e.WriteUUID(t.TopicID)
	if err := e.WriteCompactArrayLen(len(t.Partitions)); err != nil {
		return fmt.Errorf("topic %s partitions: %w", t.TopicID, err)
	}

	for _, p := range t.Partitions {
		e.WriteInt32(p.PartitionIndex)
		e.WriteInt16(p.ErrorCode)
		e.WriteTagBuffer()
	}
	e.WriteTagBuffer()
	return nil
}

// Encode - the recipe

func EncodeFetchResponse(e *Encoder, r *FetchResponse) error {
	r.writeHeader(e)
	if err := r.writeTopics(e); err != nil {
		return err
	}
	e.WriteTagBuffer()
	return nil
}

func (r *FetchResponse) Correlation() int32 { return r.CorrelationID }

func (r *FetchResponse) Encode(e *Encoder) error { return EncodeFetchResponse(e, r) }
