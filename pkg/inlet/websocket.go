package inlet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

// WebSocketInlet connects to the tracker's websocket outlet route.
type WebSocketInlet struct {
	url string
	decoder
}

func (in *WebSocketInlet) Run(ctx context.Context, handle Handler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, in.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", in.url, err)
	}
	in.logger.Infof("Connected to %s", in.url)

	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) &&
				(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
				in.logger.Infof("Stream closed by the tracker")
				return nil
			}
			return fmt.Errorf("stream connection lost: %w", err)
		}
		in.deliver(payload, handle)
	}
}
