package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/avashista/jobquest/backend/interview"
	ws "github.com/avashista/jobquest/backend/websocket"
)

// actionTimeout bounds one action's work, including its AI calls.
const actionTimeout = 2 * time.Minute

// WebSocketHandler routes interview action messages from a connected client
// into the session engine and streams the resulting events back.
type WebSocketHandler struct {
	engine *interview.Engine
}

func NewWebSocketHandler(engine *interview.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
	}
}

// HandleWebSocketMessage processes one incoming action request. The session
// the client connected with always wins over whatever the payload claims.
func (h *WebSocketHandler) HandleWebSocketMessage(client *ws.Client, messageBytes []byte) {
	var req interview.ActionRequest
	if err := json.Unmarshal(messageBytes, &req); err != nil {
		slog.Error("Failed to unmarshal action request", "error", err, "session_id", client.SessionID)
		client.SendJSON(interview.ErrorEvent{Type: interview.EventTypeError, Error: "Invalid request payload"})
		return
	}
	req.SessionID = client.SessionID

	slog.Info("Interview action received", "action", req.Action, "user_id", client.UserID, "session_id", client.SessionID)

	// Derive from the connection's context so a disconnect cancels any
	// in-flight AI call for this action.
	ctx, cancel := context.WithTimeout(client.Context(), actionTimeout)
	defer cancel()

	h.engine.HandleAction(ctx, req, func(event interview.Event) error {
		return client.SendJSON(event)
	})
}
