package outlet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pebbe/zmq4"
	"github.com/scottastone/MouseTracker/pkg/log"
	"github.com/twmb/franz-go/pkg/kgo"
)

// --- ZeroMQ ---

type zmqFrame struct {
	data  string
	flags zmq4.Flag
}

type fakeSocket struct {
	frames []zmqFrame
	err    error
	closed bool
}

func (s *fakeSocket) Send(data string, flags zmq4.Flag) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.frames = append(s.frames, zmqFrame{data, flags})
	return len(data), nil
}

func (s *fakeSocket) SendBytes(data []byte, flags zmq4.Flag) (int, error) {
	return s.Send(string(data), flags)
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

func TestZeroMQTransportFrames(t *testing.T) {
	socket := &fakeSocket{}
	zt := newZeroMQTransport(socket, "mouse", log.NewDiscardLogger())
	zt.SetAnnounceInterval(2)

	if err := zt.Announce([]byte("info")); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}
	for _, p := range []string{"s1", "s2", "s3"} {
		if err := zt.Send([]byte(p)); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	expected := []zmqFrame{
		{"mouse.info", zmq4.SNDMORE}, {"info", 0},
		{"mouse", zmq4.SNDMORE}, {"s1", 0},
		{"mouse", zmq4.SNDMORE}, {"s2", 0},
		{"mouse.info", zmq4.SNDMORE}, {"info", 0},
		{"mouse", zmq4.SNDMORE}, {"s3", 0},
	}
	if len(socket.frames) != len(expected) {
		t.Fatalf("Expected %d frames, got %d: %v", len(expected), len(socket.frames), socket.frames)
	}
	for i := range expected {
		if socket.frames[i] != expected[i] {
			t.Errorf("Frame %d: expected %v, got %v", i, expected[i], socket.frames[i])
		}
	}
}

func TestZeroMQTransportClose(t *testing.T) {
	socket := &fakeSocket{}
	zt := newZeroMQTransport(socket, "mouse", log.NewDiscardLogger())

	if err := zt.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !socket.closed {
		t.Errorf("Expected socket to be closed")
	}
	if err := zt.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if err := zt.Send([]byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestZeroMQTransportSendError(t *testing.T) {
	socket := &fakeSocket{err: errors.New("host unreachable")}
	zt := newZeroMQTransport(socket, "mouse", log.NewDiscardLogger())

	if err := zt.Send([]byte("s1")); err == nil {
		t.Errorf("Expected send error")
	}
}

// --- MQTT ---

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type mqttPublish struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakePublisher struct {
	published    []mqttPublish
	err          error
	disconnected bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.published = append(p.published, mqttPublish{topic, qos, retained, string(payload.([]byte))})
	return &fakeToken{err: p.err}
}

func (p *fakePublisher) Disconnect(uint) {
	p.disconnected = true
}

func TestMQTTTransport(t *testing.T) {
	client := &fakePublisher{}
	mt := newMQTTTransport(client, "mousetracker/samples", 1, log.NewDiscardLogger())

	if err := mt.Announce([]byte("info")); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}
	if err := mt.Send([]byte("s1")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	expected := []mqttPublish{
		{"mousetracker/samples/info", 1, true, "info"},
		{"mousetracker/samples", 1, false, "s1"},
	}
	if len(client.published) != len(expected) {
		t.Fatalf("Expected %d publishes, got %d", len(expected), len(client.published))
	}
	for i := range expected {
		if client.published[i] != expected[i] {
			t.Errorf("Publish %d: expected %+v, got %+v", i, expected[i], client.published[i])
		}
	}

	if err := mt.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !client.disconnected {
		t.Errorf("Expected client to disconnect")
	}
	if err := mt.Send([]byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestMQTTTransportPublishError(t *testing.T) {
	client := &fakePublisher{err: errors.New("not connected")}
	mt := newMQTTTransport(client, "mousetracker/samples", 0, log.NewDiscardLogger())

	if err := mt.Send([]byte("s1")); err == nil {
		t.Errorf("Expected publish error")
	}
}

// --- Kafka ---

type fakeProducer struct {
	mu       sync.Mutex
	records  []*kgo.Record
	flushed  bool
	closed   bool
	promises []func(*kgo.Record, error)
}

func (p *fakeProducer) TryProduce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r)
	p.promises = append(p.promises, promise)
}

func (p *fakeProducer) complete(err error) {
	p.mu.Lock()
	promises, records := p.promises, p.records
	p.promises = nil
	p.mu.Unlock()
	for i, promise := range promises {
		promise(records[len(records)-len(promises)+i], err)
	}
}

func (p *fakeProducer) Flush(context.Context) error {
	p.flushed = true
	return nil
}

func (p *fakeProducer) Close() {
	p.closed = true
}

func TestKafkaTransportRecords(t *testing.T) {
	producer := &fakeProducer{}
	kt := newKafkaTransport(producer, "mouseoutlet1", log.NewDiscardLogger())

	if err := kt.Announce([]byte("info")); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}
	if err := kt.Send([]byte("s1")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(producer.records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(producer.records))
	}
	for i, wantType := range []string{MsgTypeStreamInfo, MsgTypeSample} {
		r := producer.records[i]
		if string(r.Key) != "mouseoutlet1" {
			t.Errorf("Record %d: expected key mouseoutlet1, got %s", i, r.Key)
		}
		if len(r.Headers) != 1 || r.Headers[0].Key != HeaderMessageType || string(r.Headers[0].Value) != wantType {
			t.Errorf("Record %d: expected type header %s, got %v", i, wantType, r.Headers)
		}
	}

	if err := kt.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !producer.flushed || !producer.closed {
		t.Errorf("Expected flush and close, got flushed=%v closed=%v", producer.flushed, producer.closed)
	}
	if err := kt.Send([]byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestKafkaTransportAsyncErrors(t *testing.T) {
	producer := &fakeProducer{}
	kt := newKafkaTransport(producer, "mouseoutlet1", log.NewDiscardLogger())

	// A full buffer drops the record without failing the stream
	kt.Send([]byte("s1"))
	producer.complete(kgo.ErrMaxBuffered)
	if err := kt.Send([]byte("s2")); err != nil {
		t.Errorf("Expected dropped record not to fail Send, got %v", err)
	}
	if kt.Dropped() != 1 {
		t.Errorf("Expected 1 dropped record, got %d", kt.Dropped())
	}

	// Any other delivery error surfaces once on the next Send
	deliveryErr := errors.New("topic not found")
	producer.complete(deliveryErr)
	if err := kt.Send([]byte("s3")); !errors.Is(err, deliveryErr) {
		t.Errorf("Expected delivery error, got %v", err)
	}
	if err := kt.Send([]byte("s4")); err != nil {
		t.Errorf("Expected error to be reported once, got %v", err)
	}
}
