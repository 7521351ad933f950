package outlet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/scottastone/MouseTracker/pkg/log"
	"github.com/twmb/franz-go/pkg/kgo"
)

// HeaderMessageType names the record header that carries the message type.
const HeaderMessageType = "type"

const kafkaFlushTimeout = 5 * time.Second

// kafkaProducer is the subset of *kgo.Client used for producing.
type kafkaProducer interface {
	TryProduce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaTransport produces samples asynchronously, keyed by source id so that
// one stream always lands on one partition. Records that do not fit in the
// client buffer are dropped. Other delivery failures reported by the client
// are returned from the next Send.
type KafkaTransport struct {
	client kafkaProducer
	key    []byte
	logger log.Logger

	mu      sync.Mutex
	running bool

	errMu    sync.Mutex
	asyncErr error
	dropped  uint64
}

// NewKafkaTransport creates a producer client for cfg.Brokers. At most
// maxBuffered records are held while waiting for the brokers.
func NewKafkaTransport(cfg config.KafkaConfig, sourceID string, maxBuffered int, logger log.Logger) (*KafkaTransport, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.MaxBufferedRecords(maxBuffered),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	logger.Infof("Kafka outlet producing to %v, topic %q", cfg.Brokers, cfg.Topic)
	return newKafkaTransport(client, sourceID, logger), nil
}

func newKafkaTransport(client kafkaProducer, sourceID string, logger log.Logger) *KafkaTransport {
	return &KafkaTransport{
		client:  client,
		key:     []byte(sourceID),
		logger:  logger,
		running: true,
	}
}

// Announce produces the stream info record.
func (t *KafkaTransport) Announce(info []byte) error {
	return t.produce(MsgTypeStreamInfo, info)
}

// Send produces one sample record.
func (t *KafkaTransport) Send(sample []byte) error {
	return t.produce(MsgTypeSample, sample)
}

func (t *KafkaTransport) produce(msgType string, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return ErrClosed
	}
	if err := t.takeAsyncErr(); err != nil {
		return fmt.Errorf("Kafka delivery error: %w", err)
	}

	record := &kgo.Record{
		Key:     t.key,
		Value:   payload,
		Headers: []kgo.RecordHeader{{Key: HeaderMessageType, Value: []byte(msgType)}},
	}
	t.client.TryProduce(context.Background(), record, t.onDelivery)
	return nil
}

// Dropped returns how many records were discarded because the buffer was full.
func (t *KafkaTransport) Dropped() uint64 {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.dropped
}

func (t *KafkaTransport) onDelivery(_ *kgo.Record, err error) {
	if err == nil {
		return
	}
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if errors.Is(err, kgo.ErrMaxBuffered) {
		t.dropped++
		return
	}
	if t.asyncErr == nil {
		t.asyncErr = err
	}
}

func (t *KafkaTransport) takeAsyncErr() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	err := t.asyncErr
	t.asyncErr = nil
	return err
}

// Close flushes buffered records and closes the client.
func (t *KafkaTransport) Close() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), kafkaFlushTimeout)
	defer cancel()

	err := t.client.Flush(ctx)
	t.client.Close()
	if err != nil {
		return fmt.Errorf("failed to flush Kafka records: %w", err)
	}
	t.logger.Infof("Kafka outlet closed")
	return nil
}
