package inlet

import (
	"context"
	"fmt"
	"io"

	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/scottastone/MouseTracker/pkg/log"
	"github.com/scottastone/MouseTracker/pkg/outlet"
)

// Handler is called for every decoded message, in arrival order.
type Handler func(msg outlet.Message)

// Inlet receives the outbound stream of a running tracker.
type Inlet interface {
	// Run delivers messages to handle until ctx is done or the connection fails.
	Run(ctx context.Context, handle Handler) error
}

// New returns the inlet matching cfg.Stream.Backend.
func New(cfg *config.Config, logger log.Logger) (Inlet, error) {
	codec, err := outlet.NewCodec(cfg.Stream.Encoding)
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("backend", cfg.Stream.Backend)
	d := decoder{codec: codec, logger: logger}

	switch cfg.Stream.Backend {
	case config.BackendZeroMQ:
		return &ZeroMQInlet{cfg: cfg.Stream.ZeroMQ, decoder: d}, nil
	case config.BackendMQTT:
		return &MQTTInlet{cfg: cfg.Stream.MQTT, decoder: d}, nil
	case config.BackendKafka:
		return &KafkaInlet{cfg: cfg.Stream.Kafka, decoder: d}, nil
	case config.BackendWebSocket:
		url := fmt.Sprintf("ws://localhost:%d%s", cfg.Server.HTTPPort, cfg.Stream.WebSocket.Path)
		return &WebSocketInlet{url: url, decoder: d}, nil
	default:
		return nil, fmt.Errorf("%w: %q", outlet.ErrUnknownBackend, cfg.Stream.Backend)
	}
}

// decoder turns payloads into messages, logging and skipping bad ones.
type decoder struct {
	codec  outlet.Codec
	logger log.Logger
}

func (d decoder) deliver(payload []byte, handle Handler) bool {
	msg, err := d.codec.Decode(payload)
	if err != nil {
		d.logger.Warnf("Dropping undecodable message (%d bytes): %v", len(payload), err)
		return false
	}
	handle(msg)
	return true
}

// Printer writes samples and stream info as console lines.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Handle is a Handler.
func (p *Printer) Handle(msg outlet.Message) {
	switch {
	case msg.Sample != nil:
		fmt.Fprintln(p.w, FormatSample(*msg.Sample))
	case msg.Info != nil:
		info := msg.Info
		fmt.Fprintf(p.w, "Stream %q type=%s channels=%d format=%s rate=%.0fHz source=%s uid=%s\n",
			info.Name, info.Type, info.ChannelCount, info.ChannelFormat, info.NominalRate, info.SourceID, info.UID)
	}
}

// FormatSample renders one received sample.
func FormatSample(s outlet.Sample) string {
	var x, y int32
	if len(s.Values) >= 2 {
		x, y = s.Values[0], s.Values[1]
	}
	return fmt.Sprintf("Seq:%8d Time:%10.4f X:%5d Y:%5d", s.Seq, s.Timestamp, x, y)
}
