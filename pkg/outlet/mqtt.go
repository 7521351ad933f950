package outlet

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/scottastone/MouseTracker/pkg/log"
)

// mqttPublishWait bounds how long Send waits for a publish token. A token
// still pending after that is treated as delivered.
const mqttPublishWait = 250 * time.Millisecond

// mqttPublisher is the subset of mqtt.Client used for publishing.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTTransport publishes samples on one MQTT topic and the stream info as a
// retained message on <topic>/info, so late subscribers still receive it.
type MQTTTransport struct {
	client    mqttPublisher
	topic     string
	infoTopic string
	qos       byte
	logger    log.Logger

	mu      sync.Mutex
	running bool
}

// NewMQTTTransport connects to cfg.Broker.
func NewMQTTTransport(cfg config.MQTTConfig, logger log.Logger) (*MQTTTransport, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect error: %w", token.Error())
	}

	logger.Infof("MQTT outlet connected to %s, topic %q", cfg.Broker, cfg.Topic)
	return newMQTTTransport(client, cfg.Topic, cfg.QoS, logger), nil
}

func newMQTTTransport(client mqttPublisher, topic string, qos byte, logger log.Logger) *MQTTTransport {
	return &MQTTTransport{
		client:    client,
		topic:     topic,
		infoTopic: topic + "/info",
		qos:       qos,
		logger:    logger,
		running:   true,
	}
}

// Announce publishes the retained info message and waits for it.
func (t *MQTTTransport) Announce(info []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return ErrClosed
	}
	token := t.client.Publish(t.infoTopic, 1, true, info)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish stream info: %w", token.Error())
	}
	return nil
}

// Send publishes one sample. Delivery is not awaited beyond mqttPublishWait.
func (t *MQTTTransport) Send(sample []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return ErrClosed
	}
	token := t.client.Publish(t.topic, t.qos, false, sample)
	if token.WaitTimeout(mqttPublishWait) && token.Error() != nil {
		return fmt.Errorf("MQTT publish error: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (t *MQTTTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false
	t.client.Disconnect(250)
	t.logger.Infof("MQTT outlet disconnected")
	return nil
}
