// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the event stream.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	StreamClosedError   = 3001 // The server is shutting down and the hub closed the subscription.
)
