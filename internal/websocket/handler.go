package websocket

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rex103240/IronLock-Server/internal/models"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.AdminUser, error)
}

type WebSocketHandler struct {
	ctx  context.Context
	hub  *Hub
	auth Authenticator
}

// NewWebSocketHandler serves admin connections on hub until ctx ends.
func NewWebSocketHandler(ctx context.Context, hub *Hub, auth Authenticator) *WebSocketHandler {
	return &WebSocketHandler{ctx: ctx, hub: hub, auth: auth}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	admin, err := h.auth.Authenticate(c.Request.Context(), tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		adminID:  admin.ID,
		username: admin.Username,
	}

	go client.HandleClientConnection(h.ctx)
}
