package outlet

import (
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"
	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/scottastone/MouseTracker/pkg/log"
)

// InfoTopicSuffix is appended to the sample topic for stream info frames.
const InfoTopicSuffix = ".info"

// zmqSocket is the subset of *zmq4.Socket used for publishing.
type zmqSocket interface {
	Send(data string, flags zmq4.Flag) (int, error)
	SendBytes(data []byte, flags zmq4.Flag) (int, error)
	Close() error
}

// ZeroMQTransport publishes two-frame messages (topic, payload) on a PUB socket.
// PUB drops messages for subscribers that join late, so the info frame is
// repeated every announceEvery samples.
type ZeroMQTransport struct {
	ctx       *zmq4.Context
	socket    zmqSocket
	topic     string
	infoTopic string
	logger    log.Logger

	mu            sync.Mutex
	running       bool
	info          []byte
	announceEvery int
	sinceAnnounce int
}

// NewZeroMQTransport binds a PUB socket to cfg.PublishBindAddress. The send
// high-water mark is set to maxBuffered messages.
func NewZeroMQTransport(cfg config.ZeroMQConfig, maxBuffered int, logger log.Logger) (*ZeroMQTransport, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZeroMQ context: %w", err)
	}

	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		ctx.Term()
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	fail := func(err error) (*ZeroMQTransport, error) {
		socket.Close()
		ctx.Term()
		return nil, err
	}

	if err := socket.SetLinger(0); err != nil {
		return fail(fmt.Errorf("failed to set linger option: %w", err))
	}
	if err := socket.SetSndhwm(maxBuffered); err != nil {
		return fail(fmt.Errorf("failed to set send high-water mark: %w", err))
	}
	if err := socket.Bind(cfg.PublishBindAddress); err != nil {
		return fail(fmt.Errorf("failed to bind to %s: %w", cfg.PublishBindAddress, err))
	}

	logger.Infof("ZeroMQ outlet bound to %s, topic %q", cfg.PublishBindAddress, cfg.Topic)

	t := newZeroMQTransport(socket, cfg.Topic, logger)
	t.ctx = ctx
	return t, nil
}

func newZeroMQTransport(socket zmqSocket, topic string, logger log.Logger) *ZeroMQTransport {
	return &ZeroMQTransport{
		socket:        socket,
		topic:         topic,
		infoTopic:     topic + InfoTopicSuffix,
		logger:        logger,
		running:       true,
		announceEvery: 100,
	}
}

// Announce publishes the info frame and schedules its repetition.
func (t *ZeroMQTransport) Announce(info []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.info = info
	return t.sendLocked(t.infoTopic, info)
}

// SetAnnounceInterval sets how many samples pass between info frames.
func (t *ZeroMQTransport) SetAnnounceInterval(samples int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if samples > 0 {
		t.announceEvery = samples
	}
}

// Send publishes one encoded sample under the configured topic.
func (t *ZeroMQTransport) Send(sample []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.sendLocked(t.topic, sample); err != nil {
		return err
	}

	t.sinceAnnounce++
	if t.info != nil && t.sinceAnnounce >= t.announceEvery {
		t.sinceAnnounce = 0
		if err := t.sendLocked(t.infoTopic, t.info); err != nil {
			t.logger.Warnf("Failed to repeat stream info: %v", err)
		}
	}
	return nil
}

func (t *ZeroMQTransport) sendLocked(topic string, payload []byte) error {
	if !t.running {
		return ErrClosed
	}

	// Send topic frame first
	if _, err := t.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic frame: %w", err)
	}

	// Send payload frame
	if _, err := t.socket.SendBytes(payload, 0); err != nil {
		return fmt.Errorf("failed to send payload frame: %w", err)
	}
	return nil
}

// Close closes the socket and terminates the context.
func (t *ZeroMQTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false

	err := t.socket.Close()
	if t.ctx != nil {
		if termErr := t.ctx.Term(); termErr != nil && err == nil {
			err = termErr
		}
	}
	t.logger.Infof("ZeroMQ outlet closed")
	return err
}
