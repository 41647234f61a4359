package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/payout-ledger/internal/http/handlers/common"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/service"
	"github.com/ignatzorin/payout-ledger/internal/ws"
)

// WSHandler upgrades admin consoles to the live-update socket.
type WSHandler struct {
	hub      *ws.Hub
	tokens   *service.TokenManager
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Handle serves GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		common.RespondError(c, apperror.New(apperror.ErrCodeUnauthorized, "access token is required"))
		return
	}

	userID, role, err := h.tokens.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		common.RespondError(c, apperror.New(apperror.ErrCodeUnauthorized, "invalid access token"))
		return
	}
	if role != service.RoleAdmin {
		common.RespondError(c, apperror.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		_ = c.Error(err)
		return
	}

	client := ws.NewClient(conn, h.hub, userID)
	h.hub.Register(client)
	client.Run(c.Request.Context())
}
