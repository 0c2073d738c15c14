/*
Package handler provides the HTTP handler for the WebSocket event feed.

This file contains HandleEvents, which upgrades the connection, subscribes to
the watchdog feed hub, and streams poll events until the client disconnects.
*/
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"torwatch/internal/pkg/logx"
)

const (
	// timeout for writing one event frame to the connection.
	eventWriteWait = 10 * time.Second

	// maximum time to wait for a Pong before considering the peer gone.
	eventPongWait = 60 * time.Second

	// frequency of server Pings; must be under eventPongWait.
	eventPingPeriod = (eventPongWait * 9) / 10
)

// HandleEvents streams watchdog poll events to an operator client.
func HandleEvents(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		events, unsubscribe := deps.Hub.Subscribe()
		defer unsubscribe()

		logx.Info("Event feed subscriber connected")

		// Reader goroutine: consumes control frames and unblocks the
		// writer when the peer goes away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			conn.SetReadLimit(512)
			_ = conn.SetReadDeadline(time.Now().Add(eventPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(eventPongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(eventPingPeriod)
		defer ticker.Stop()
		defer conn.Close()

		for {
			select {
			case <-done:
				logx.Info("Event feed subscriber disconnected")
				return

			case event, ok := <-events:
				if !ok {
					// Hub shut down.
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
						time.Now().Add(eventWriteWait))
					return
				}

				payload, err := json.Marshal(event)
				if err != nil {
					logx.Error(err, "Failed to encode feed event")
					continue
				}

				_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}

			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
