package outlet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/scottastone/MouseTracker/pkg/log"
)

// Common errors
var (
	ErrClosed         = errors.New("outlet is closed")
	ErrPublish        = errors.New("failed to publish sample")
	ErrChannelCount   = errors.New("sample has wrong channel count")
	ErrUnknownBackend = errors.New("unknown outlet backend")
)

// Message types carried in the envelope
const (
	MsgTypeSample     = "SAMPLE"
	MsgTypeStreamInfo = "STREAM_INFO"
)

const (
	// ChannelCount is the number of channels per sample: x then y.
	ChannelCount = 2
	// ChannelFormat is the on-wire type of every channel value.
	ChannelFormat = "int32"
)

// StreamInfo is the metadata a consumer needs to discover and interpret the stream.
type StreamInfo struct {
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	ChannelCount  int       `json:"channel_count"`
	NominalRate   float64   `json:"nominal_srate"`
	ChannelFormat string    `json:"channel_format"`
	SourceID      string    `json:"source_id"`
	MaxBuffered   int       `json:"max_buffered"`
	Encoding      string    `json:"encoding"`
	UID           string    `json:"uid"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewStreamInfo builds the stream description for a run sampling at hertz.
func NewStreamInfo(cfg config.StreamConfig, hertz int) StreamInfo {
	return StreamInfo{
		Name:          cfg.Name,
		Type:          cfg.Type,
		ChannelCount:  ChannelCount,
		NominalRate:   float64(hertz),
		ChannelFormat: ChannelFormat,
		SourceID:      cfg.SourceID,
		MaxBuffered:   cfg.MaxBuffered,
		Encoding:      cfg.Encoding,
		UID:           uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}
}

// Sample is one published sample as it appears on the wire.
type Sample struct {
	SourceID  string  `json:"source_id"`
	Seq       uint64  `json:"seq"`
	Timestamp float64 `json:"timestamp"`
	Values    []int32 `json:"values"`
}

// Outlet is a named, typed outbound stream of two-channel samples.
type Outlet interface {
	Info() StreamInfo
	PushSample(values []int32) error
	Close() error
}

// Transport moves encoded payloads to consumers. Announce is called once with
// the encoded StreamInfo before the first Send.
type Transport interface {
	Announce(info []byte) error
	Send(sample []byte) error
	Close() error
}

// Stream is the Outlet implementation shared by every backend. It validates,
// stamps and encodes samples and hands the bytes to its Transport.
type Stream struct {
	info      StreamInfo
	codec     Codec
	transport Transport
	logger    log.Logger

	clock   func() time.Time
	created time.Time

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// Ensure Stream implements the Outlet interface
var _ Outlet = (*Stream)(nil)

// NewStream announces info on transport and returns an open outlet.
// A nil clock uses time.Now.
func NewStream(info StreamInfo, codec Codec, transport Transport, logger log.Logger, clock func() time.Time) (*Stream, error) {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = log.NewDiscardLogger()
	}

	data, err := codec.EncodeInfo(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stream info: %w", err)
	}
	if err := transport.Announce(data); err != nil {
		return nil, fmt.Errorf("failed to announce stream %q: %w", info.Name, err)
	}

	logger.Infof("Outlet %q (%s) open: %d channels of %s at %.0f Hz, uid %s",
		info.Name, info.Type, info.ChannelCount, info.ChannelFormat, info.NominalRate, info.UID)

	return &Stream{
		info:      info,
		codec:     codec,
		transport: transport,
		logger:    logger,
		clock:     clock,
		created:   clock(),
	}, nil
}

// Info returns the stream description.
func (s *Stream) Info() StreamInfo {
	return s.info
}

// Transport returns the backend the stream publishes through.
func (s *Stream) Transport() Transport {
	return s.transport
}

// Seq returns the number of samples pushed so far.
func (s *Stream) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// PushSample publishes one sample. Samples are stamped with a sequence number
// and the seconds elapsed since the outlet was created.
func (s *Stream) PushSample(values []int32) error {
	if len(values) != s.info.ChannelCount {
		return fmt.Errorf("%w: expected %d, got %d", ErrChannelCount, s.info.ChannelCount, len(values))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	sample := Sample{
		SourceID:  s.info.SourceID,
		Seq:       s.seq + 1,
		Timestamp: s.clock().Sub(s.created).Seconds(),
		Values:    values,
	}
	data, err := s.codec.EncodeSample(sample)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPublish, err)
	}
	if err := s.transport.Send(data); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	s.seq = sample.Seq
	return nil
}

// Close releases the transport. Calling Close more than once is a no-op.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Infof("Closing outlet %q after %d samples", s.info.Name, s.seq)
	return s.transport.Close()
}

// New creates the outlet selected by cfg.Backend.
func New(cfg config.StreamConfig, hertz int, logger log.Logger) (*Stream, error) {
	if logger == nil {
		logger = log.NewDiscardLogger()
	}
	logger = logger.WithField("backend", cfg.Backend)

	codec, err := NewCodec(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	var transport Transport
	switch cfg.Backend {
	case config.BackendZeroMQ:
		var zt *ZeroMQTransport
		if zt, err = NewZeroMQTransport(cfg.ZeroMQ, cfg.MaxBuffered, logger); err == nil {
			// Repeat the info frame about once a second
			zt.SetAnnounceInterval(hertz)
			transport = zt
		}
	case config.BackendMQTT:
		var mt *MQTTTransport
		if mt, err = NewMQTTTransport(cfg.MQTT, logger); err == nil {
			transport = mt
		}
	case config.BackendKafka:
		var kt *KafkaTransport
		if kt, err = NewKafkaTransport(cfg.Kafka, cfg.SourceID, cfg.MaxBuffered, logger); err == nil {
			transport = kt
		}
	case config.BackendWebSocket:
		transport = NewWebSocketTransport(cfg.MaxBuffered, codec.Binary(), logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	stream, err := NewStream(NewStreamInfo(cfg, hertz), codec, transport, logger, nil)
	if err != nil {
		transport.Close()
		return nil, err
	}
	return stream, nil
}
