package inlet

import (
	"context"
	"fmt"

	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaInlet consumes the sample topic from its current end.
type KafkaInlet struct {
	cfg config.KafkaConfig
	decoder
}

func (in *KafkaInlet) Run(ctx context.Context, handle Handler) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(in.cfg.Brokers...),
		kgo.ConsumeTopics(in.cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return fmt.Errorf("failed to create Kafka client: %w", err)
	}
	defer client.Close()
	in.logger.Infof("Consuming %q from %v", in.cfg.Topic, in.cfg.Brokers)

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			in.logger.Warnf("Fetch error on %s/%d: %v", topic, partition, err)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			in.deliver(r.Value, handle)
		})
	}
}
