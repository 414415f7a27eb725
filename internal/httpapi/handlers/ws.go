package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/careerpilot/careerpilot/internal/agent"
	"github.com/careerpilot/careerpilot/internal/auth"
	"github.com/careerpilot/careerpilot/internal/chat"
	"github.com/careerpilot/careerpilot/internal/common"
	"github.com/careerpilot/careerpilot/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Token auth guards the connection; origin is not the boundary.
		return true
	},
}

// HandleWS upgrades the connection and runs the user's conversation
// channel until the client goes away. Browsers cannot set headers on
// websocket dials, so the token rides the query string.
func (h *Handler) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		common.Fail(c, http.StatusUnauthorized, 40100, "token required")
		return
	}
	userID, err := auth.VerifyJWT(token, h.Cfg.JWTSecret)
	if err != nil {
		common.Fail(c, http.StatusUnauthorized, 40101, "invalid or expired token")
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		common.Fail(c, http.StatusUnauthorized, 40102, "account no longer exists")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	deps := &agent.Deps{
		DB:        h.DB,
		User:      &user,
		Lock:      h.Locks.ForUser(user.ID),
		Stop:      &atomic.Bool{},
		Resumes:   h.Resumes,
		Documents: h.Documents,
		Index:     h.Index,
		Extractor: h.Extractor,
		Search:    h.Search,
		Fetcher:   h.Fetcher,
		Letters:   h.Queue,
		Provider:  h.Provider,
	}

	channel := chat.NewChannel(conn, h.ChatRepo, deps, h.Loop, h.Cfg.ChatContextWindowSize, h.Logger)

	// Billing status goes out first so the client can gate its UI.
	if h.Subs != nil {
		sub, err := h.Subs.Get(ctx, user.ID)
		if err != nil {
			h.Logger.Warn("subscription lookup failed", "err", err)
			sub.IsActive, sub.Plan = true, "free"
		}
		channel.Push(chat.OutboundSubscription{Type: "subscription_status", IsActive: sub.IsActive, Plan: sub.Plan})
	}

	// Async job results arrive over redis pub/sub and are forwarded to
	// whichever node holds the live socket.
	if h.Notifier != nil {
		pubsub := h.Notifier.SubscribeUserNotify(ctx, user.ID)
		defer pubsub.Close()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-pubsub.Channel():
					if !ok {
						return
					}
					channel.Push(json.RawMessage(msg.Payload))
				}
			}
		}()
	}

	channel.Run(ctx)
}
