package inlet

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/scottastone/MouseTracker/pkg/config"
)

// MQTTInlet subscribes to the sample topic and the retained info topic.
type MQTTInlet struct {
	cfg config.MQTTConfig
	decoder
}

func (in *MQTTInlet) Run(ctx context.Context, handle Handler) error {
	opts := mqtt.NewClientOptions().
		AddBroker(in.cfg.Broker).
		SetClientID(in.cfg.ClientID + "-inlet")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)

	// Callbacks run on paho's goroutines; serialize them for handle.
	msgs := make(chan []byte, 256)
	onMessage := func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case msgs <- msg.Payload():
		case <-ctx.Done():
		}
	}

	for _, topic := range []string{in.cfg.Topic + "/info", in.cfg.Topic} {
		if token := client.Subscribe(topic, in.cfg.QoS, onMessage); token.Wait() && token.Error() != nil {
			return fmt.Errorf("MQTT subscribe error for %s: %w", topic, token.Error())
		}
		in.logger.Infof("Subscribed to %s", topic)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-msgs:
			in.deliver(payload, handle)
		}
	}
}
