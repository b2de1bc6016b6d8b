package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"relay-service/internal/models"
	"relay-service/internal/observability"
	"relay-service/internal/relay"
)

// Handler upgrades client connections and feeds their frames to the engine.
type Handler struct {
	engine *relay.Engine
}

// NewHandler constructs a websocket Handler.
func NewHandler(engine *relay.Engine) *Handler {
	return &Handler{engine: engine}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs its read loop. Connections start
// unauthenticated; the only transition to authenticated is a valid in-band
// auth frame. Disconnect handling runs exactly once per connection.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("relay-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, info, "ws_connect", "", "")

	go h.readLoop(ctx, client)
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	info := client.Info()
	var closeReason string
	var boundUID string

	defer func() {
		h.engine.Disconnect(client)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, info, "ws_disconnect", closeReason, boundUID)
		client.Close()
	}()

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, info, "ws_error", closeReason, boundUID)
			}
			return
		}

		var frame models.ClientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			observability.IncWSEvent("bad_frame")
			continue
		}

		switch frame.Type {
		case models.FrameAuth:
			observability.IncWSEvent("auth")
			if user, err := h.engine.HandleAuth(client, frame.Token); err == nil {
				boundUID = user.UID
			}
		case models.FrameSendMessage:
			observability.IncWSEvent("send_message")
			// Failures are silent on this path: the channel's existence is
			// never revealed to callers not entitled to it.
			_, _ = h.engine.SendMessage(frame.Token, frame.ChannelType, frame.ChannelID, frame.Text, frame.ImageURL)
		case models.FrameUpdateProfile:
			observability.IncWSEvent("update_profile")
			_, _ = h.engine.UpdateProfileByToken(frame.Token, frame.ProfileUpdate())
		default:
			observability.IncWSEvent("bad_frame")
		}
	}
}

func (h *Handler) publishLifecycle(ctx context.Context, info ConnInfo, event, reason, uid string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   uid,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.relay", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}
