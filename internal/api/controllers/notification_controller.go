package controllers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"tably/internal/hub"
	"tably/internal/services"
	"tably/pkg/utils"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// SSE comment keepalive period.
	sseKeepalive = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin is already handled by the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type NotificationController struct {
	notificationService services.NotificationServiceInterface
	pushHub             *hub.Hub
}

func NewNotificationController(notificationService services.NotificationServiceInterface, pushHub *hub.Hub) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
		pushHub:             pushHub,
	}
}

func (n *NotificationController) GetPreference(c *gin.Context) {

	pref, err := n.notificationService.GetPreference(c.Request.Context(), c.GetString("account_id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, pref, "Fetched notification preference")
}

func (n *NotificationController) SetPreference(c *gin.Context) {

	var request struct {
		InAppEnabled *bool `json:"in_app_enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := n.notificationService.SetPreference(c.Request.Context(), c.GetString("account_id"), *request.InAppEnabled); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Preference updated")
}

func (n *NotificationController) ListRecent(c *gin.Context) {

	notifications, err := n.notificationService.ListRecent(c.Request.Context(), c.GetString("account_id"), 50)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, notifications, "Fetched notifications")
}

func (n *NotificationController) MarkRead(c *gin.Context) {

	if err := n.notificationService.MarkRead(c.Request.Context(), c.GetString("account_id"), c.Param("id")); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Notification marked read")
}

// StreamWebSocket upgrades to the primary push transport. One text frame per
// notification payload.
func (n *NotificationController) StreamWebSocket(c *gin.Context) {

	accountID := c.GetString("account_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("notifications: websocket upgrade for account %s: %v", accountID, err)
		return
	}

	sub := n.pushHub.Subscribe(accountID)
	defer n.pushHub.Unsubscribe(sub)

	// Reader: the client never sends data frames; this loop exists to
	// process control frames and observe the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// StreamSSE is the fallback push transport: a long-lived text/event-stream
// response carrying one data: line per notification payload.
func (n *NotificationController) StreamSSE(c *gin.Context) {

	accountID := c.GetString("account_id")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		utils.RespondError(c, http.StatusInternalServerError, "streaming not supported")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := n.pushHub.Subscribe(accountID)
	defer n.pushHub.Unsubscribe(sub)

	keepalive := time.NewTicker(sseKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
