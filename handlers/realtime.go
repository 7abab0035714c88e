// handlers/realtime.go - Live ledger event stream over WebSocket
package handlers

import (
	"encoding/json"
	"log"
	"time"

	"vaulty/services"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 15 * time.Second
)

// StreamLedgerEvents pushes the caller's ledger events (transfers, rank-ups,
// plan changes) as they happen. Connections that fall behind are dropped
// rather than blocking the broker.
func StreamLedgerEvents(conn *websocket.Conn) {
	var userID uint
	switch v := conn.Locals("userId").(type) {
	case float64:
		userID = uint(v)
	case uint:
		userID = v
	}

	broker := services.GetEventBroker()
	events := broker.Subscribe()
	defer broker.Unsubscribe(events)

	done := make(chan struct{})

	// Reader exists only to detect the client going away.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-done:
			return
		case event := <-events:
			// Each subscriber only sees their own entries; admin sockets
			// could fan out differently but this stream is per-user.
			if event.UserID != userID {
				continue
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("ledger stream write failed for user %d: %v", userID, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
