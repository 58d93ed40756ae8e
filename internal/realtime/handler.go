package realtime

import (
	"log/slog"
	"net/http"
	"strings"

	"appointly/internal/middleware"
	"appointly/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler upgrades authenticated subscribers to websockets.
type Handler struct {
	hub    *Hub
	prefix string
	log    *slog.Logger
}

func NewHandler(hub *Hub, channelPrefix string, log *slog.Logger) *Handler {
	return &Handler{hub: hub, prefix: channelPrefix, log: log}
}

// Subscribe expects SubscriberAuth to have run. The channel query param is
// optional; more channels can be joined over the socket.
func (h *Handler) Subscribe(c *gin.Context) {
	claims, ok := middleware.SubscriberClaims(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Missing subscriber token")
		return
	}

	canJoin := func(channel string) bool {
		id, found := strings.CutPrefix(channel, h.prefix)
		return found && claims.CanSubscribe(id)
	}

	var initial []string
	if channel := c.Query("channel"); channel != "" {
		if !canJoin(channel) {
			response.Error(c, http.StatusForbidden, "Channel not allowed")
			return
		}
		initial = append(initial, channel)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.log.Debug("realtime subscriber connected", "profile_id", claims.ProfileID, "channels", initial)
	h.hub.ServeWS(conn, claims.ProfileID, initial, canJoin)
}
