// internal/handlers/events.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/tysiac/internal/hub"
	"github.com/jason-s-yu/tysiac/internal/middleware"
)

const (
	// sseHeartbeatInterval keeps idle proxies from cutting the stream.
	sseHeartbeatInterval = 15 * time.Second
	// wsWriteTimeout bounds a single websocket frame write.
	wsWriteTimeout = 5 * time.Second
	// EventsSubprotocol is the websocket subprotocol clients must request.
	EventsSubprotocol = "events"
)

// EventsSSEHandler streams hub events as server-sent events, one JSON object per
// event, tagged with the event type.
func EventsSSEHandler(logger *logrus.Logger, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ctx := r.Context()
		sub := h.Subscribe(ctx)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		middleware.LogStreamConnect(logger, "sse", r.RemoteAddr, r.URL.Path)
		defer middleware.LogStreamDisconnect(logger, "sse", r.RemoteAddr, r.URL.Path, nil)

		ticker := time.NewTicker(sseHeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					logger.WithError(err).Warn("failed to marshal SSE event")
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
				flusher.Flush()
			}
		}
	}
}

// EventsWSHandler upgrades to a websocket and relays hub events as JSON text frames.
// Anything the client sends is ignored; closing the socket ends the subscription.
func EventsWSHandler(logger *logrus.Logger, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{EventsSubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != EventsSubprotocol {
			logger.Warnf("Client connected with invalid subprotocol: %q", c.Subprotocol())
			c.Close(BadSubprotocolError, "Client must use the 'events' subprotocol.")
			return
		}

		// CloseRead cancels ctx once the client goes away.
		ctx := c.CloseRead(r.Context())
		sub := h.Subscribe(ctx)
		defer sub.Close()

		middleware.LogStreamConnect(logger, "ws", r.RemoteAddr, r.URL.Path)
		err = relayEvents(ctx, c, sub)
		middleware.LogStreamDisconnect(logger, "ws", r.RemoteAddr, r.URL.Path, err)

		switch {
		case errors.Is(err, errStreamClosed):
			c.Close(StreamClosedError, "event stream closed")
		case err == nil || ctx.Err() != nil:
			c.Close(websocket.StatusNormalClosure, "")
		}
	}
}

var errStreamClosed = errors.New("event stream closed")

// relayEvents writes every event of sub to c until ctx ends or the subscription closes.
func relayEvents(ctx context.Context, c *websocket.Conn, sub *hub.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errStreamClosed
			}
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
	}
}
