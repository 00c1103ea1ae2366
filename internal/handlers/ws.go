package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/spinnernet/backend/internal/platform/envutil"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/realtime"
	"github.com/spinnernet/backend/internal/requestdata"

	"github.com/gorilla/websocket"
)

type WSHandler struct {
	log      *logger.Logger
	gateway  *realtime.Gateway
	upgrader websocket.Upgrader
}

func NewWSHandler(log *logger.Logger, gateway *realtime.Gateway) *WSHandler {
	allowAll := envutil.Bool("WS_ALLOW_ALL_ORIGINS", false)
	return &WSHandler{
		log:     log.With("handler", "WSHandler"),
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

// Connect upgrades the request and hands the connection to the gateway. The
// auth middleware has already resolved the caller's identity.
func (wh *WSHandler) Connect(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())

	conn, err := wh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	wh.gateway.HandleConnection(c.Request.Context(), conn, userID)
}
