package handlers

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	ws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/trentd187/tennis-tracker/internal/live"
	"github.com/trentd187/tennis-tracker/internal/websocket"
)

// RequireUpgrade only lets WebSocket handshakes through to the /ws routes; plain HTTP
// requests get 426 Upgrade Required.
func RequireUpgrade(c *fiber.Ctx) error {
	if ws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// MatchSocket handles GET /ws/matches/:id. The spectator first receives the current
// snapshot, then one message per accepted point, undo or forfeit until either side
// closes the connection.
func MatchSocket(hub *websocket.Hub, reg *live.Registry, logger *log.Logger) fiber.Handler {
	return ws.New(func(conn *ws.Conn) {
		id, err := uuid.Parse(conn.Params("id"))
		if err != nil {
			closeWith(conn, ws.CloseUnsupportedData, "invalid match ID")
			return
		}

		// Register before reading the snapshot so no update can fall in between.
		client := websocket.NewClient(id.String())
		if !hub.Register(client) {
			closeWith(conn, ws.CloseGoingAway, "server shutting down")
			return
		}
		defer hub.Unregister(client)

		snap, err := reg.Get(context.Background(), id)
		if err != nil {
			closeWith(conn, ws.ClosePolicyViolation, "match not found")
			return
		}
		data, err := json.Marshal(snap)
		if err != nil {
			logger.Error("encode snapshot", "match", id, "err", err)
			return
		}
		if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
			return
		}

		// Spectators never send anything we act on; reading only detects the close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		logger.Debug("spectator joined", "match", id, "spectators", hub.ClientCount(id.String()))
		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					// The hub dropped us: too slow, or shutting down.
					closeWith(conn, ws.CloseGoingAway, "")
					return
				}
				if err := conn.WriteMessage(ws.TextMessage, msg); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	})
}

func closeWith(conn *ws.Conn, code int, text string) {
	_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(code, text))
}
