package explorer

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is a single message of the live block stream.
type StreamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// StreamBlocks pushes every sealed block to the websocket client until it
// disconnects. The optional "ledger" query parameter restricts the stream to
// one ledger.
func (c *Controller) StreamBlocks(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	filter := ctx.QueryParam("ledger")
	sealed, cancel := c.feed.SubscribeSealed()
	defer cancel()

	// The client never sends anything; reading only detects the disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return nil

		case <-ctx.Request().Context().Done():
			return nil

		case event, ok := <-sealed:
			if !ok {
				return nil
			}
			if filter != "" && event.LedgerID != filter {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteJSON(StreamMessage{Type: "sealed", Data: event})
			if err != nil {
				return nil
			}
		}
	}
}
