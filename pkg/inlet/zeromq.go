package inlet

import (
	"context"
	"fmt"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/scottastone/MouseTracker/pkg/config"
)

// ZeroMQInlet subscribes to the sample and info topics on a SUB socket.
type ZeroMQInlet struct {
	cfg config.ZeroMQConfig
	decoder
}

func (in *ZeroMQInlet) Run(ctx context.Context, handle Handler) error {
	zctx, err := zmq4.NewContext()
	if err != nil {
		return fmt.Errorf("failed to create ZeroMQ context: %w", err)
	}
	defer zctx.Term()

	socket, err := zctx.NewSocket(zmq4.SUB)
	if err != nil {
		return fmt.Errorf("failed to create SUB socket: %w", err)
	}
	defer socket.Close()

	if err := socket.SetLinger(0); err != nil {
		return fmt.Errorf("failed to set linger option: %w", err)
	}
	// The prefix also matches the info topic
	if err := socket.SetSubscribe(in.cfg.Topic); err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", in.cfg.Topic, err)
	}
	if err := socket.Connect(in.cfg.ConnectAddress); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", in.cfg.ConnectAddress, err)
	}
	in.logger.Infof("Subscribed to %q at %s", in.cfg.Topic, in.cfg.ConnectAddress)

	// Poll with timeout to allow for clean shutdown
	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	for ctx.Err() == nil {
		sockets, err := poller.Poll(250 * time.Millisecond)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("error polling socket: %w", err)
		}
		if len(sockets) == 0 {
			continue
		}

		frames, err := socket.RecvMessageBytes(0)
		if err != nil {
			return fmt.Errorf("error receiving message: %w", err)
		}
		if len(frames) != 2 {
			in.logger.Warnf("Ignoring message with %d frames", len(frames))
			continue
		}
		in.deliver(frames[1], handle)
	}
	return nil
}
