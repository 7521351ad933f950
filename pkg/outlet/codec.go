package outlet

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/scottastone/MouseTracker/pkg/flatbuffers/mousetracker/stream"
)

// ErrInvalidMessage is returned when a payload cannot be decoded.
var ErrInvalidMessage = errors.New("invalid message format")

// Envelope is the JSON wrapper around every message on the stream.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp float64     `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Message is a decoded payload: exactly one of Sample or Info is set.
type Message struct {
	Type   string
	Sample *Sample
	Info   *StreamInfo
}

// Codec turns samples and stream info into bytes and back.
type Codec interface {
	Name() string
	// Binary reports whether sample payloads are binary rather than text.
	Binary() bool
	EncodeSample(s Sample) ([]byte, error)
	EncodeInfo(info StreamInfo) ([]byte, error)
	Decode(data []byte) (Message, error)
}

// NewCodec returns the codec for a configured encoding name.
func NewCodec(encoding string) (Codec, error) {
	switch encoding {
	case config.EncodingJSON, "":
		return JSONCodec{}, nil
	case config.EncodingFlatbuffers:
		return FlatbuffersCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}

// JSONCodec wraps every message in an Envelope.
type JSONCodec struct{}

func (JSONCodec) Name() string { return config.EncodingJSON }

func (JSONCodec) Binary() bool { return false }

func (JSONCodec) EncodeSample(s Sample) ([]byte, error) {
	return marshalEnvelope(MsgTypeSample, s)
}

func (JSONCodec) EncodeInfo(info StreamInfo) ([]byte, error) {
	return marshalEnvelope(MsgTypeStreamInfo, info)
}

func (JSONCodec) Decode(data []byte) (Message, error) {
	return decodeEnvelope(data)
}

// FlatbuffersCodec encodes samples as stream.Sample tables. Stream info stays
// in the JSON envelope; Decode tells the two apart by the file identifier.
type FlatbuffersCodec struct{}

func (FlatbuffersCodec) Name() string { return config.EncodingFlatbuffers }

func (FlatbuffersCodec) Binary() bool { return true }

func (FlatbuffersCodec) EncodeSample(s Sample) ([]byte, error) {
	builder := flatbuffers.NewBuilder(64)

	sourceID := builder.CreateString(s.SourceID)
	stream.SampleStartValuesVector(builder, len(s.Values))
	for i := len(s.Values) - 1; i >= 0; i-- {
		builder.PrependInt32(s.Values[i])
	}
	values := builder.EndVector(len(s.Values))

	stream.SampleStart(builder)
	stream.SampleAddSourceId(builder, sourceID)
	stream.SampleAddSeq(builder, s.Seq)
	stream.SampleAddTimestamp(builder, s.Timestamp)
	stream.SampleAddValues(builder, values)
	root := stream.SampleEnd(builder)

	builder.FinishWithFileIdentifier(root, []byte(stream.SampleIdentifier))
	return builder.FinishedBytes(), nil
}

func (FlatbuffersCodec) EncodeInfo(info StreamInfo) ([]byte, error) {
	return marshalEnvelope(MsgTypeStreamInfo, info)
}

func (FlatbuffersCodec) Decode(data []byte) (msg Message, err error) {
	if !stream.SampleBufferHasIdentifier(data) {
		return decodeEnvelope(data)
	}

	// A truncated table makes the accessors index out of range.
	defer func() {
		if r := recover(); r != nil {
			msg, err = Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, r)
		}
	}()

	fb := stream.GetRootAsSample(data, 0)
	values := make([]int32, fb.ValuesLength())
	for i := range values {
		values[i] = fb.Values(i)
	}
	return Message{
		Type: MsgTypeSample,
		Sample: &Sample{
			SourceID:  string(fb.SourceId()),
			Seq:       fb.Seq(),
			Timestamp: fb.Timestamp(),
			Values:    values,
		},
	}, nil
}

func marshalEnvelope(msgType string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      msgType,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Data:      data,
	})
}

func decodeEnvelope(data []byte) (Message, error) {
	var raw struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch raw.Type {
	case MsgTypeSample:
		var s Sample
		if err := json.Unmarshal(raw.Data, &s); err != nil {
			return Message{}, fmt.Errorf("%w: sample: %v", ErrInvalidMessage, err)
		}
		return Message{Type: raw.Type, Sample: &s}, nil
	case MsgTypeStreamInfo:
		var info StreamInfo
		if err := json.Unmarshal(raw.Data, &info); err != nil {
			return Message{}, fmt.Errorf("%w: stream info: %v", ErrInvalidMessage, err)
		}
		return Message{Type: raw.Type, Info: &info}, nil
	default:
		return Message{}, fmt.Errorf("%w: unknown message type %q", ErrInvalidMessage, raw.Type)
	}
}
