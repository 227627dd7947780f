package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/common"
)

// StreamConversation is the live view of one conversation: a snapshot event
// with the metadata and full history, then one event per committed delta, in
// commit order. Closing the request is the unsubscribe.
func (h *Handler) StreamConversation(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	key := c.Param("key")

	conv, history, sub, err := h.ChatSvc.OpenConversation(c.Request.Context(), key, uid)
	if err != nil {
		failWith(c, err)
		return
	}
	defer h.ChatSvc.CloseConversationView(sub)

	flusher, ok := sseHeaders(c)
	if !ok {
		return
	}

	writeSSE(c, flusher, "snapshot", gin.H{
		"type":         "snapshot",
		"conversation": conv,
		"messages":     history,
	})

	h.pumpEvents(c, flusher, sub)
}

// StreamInbox is the live recent-conversations list: snapshot, then a
// conversation event whenever any of the caller's conversations changes.
func (h *Handler) StreamInbox(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sub := h.ChatSvc.SubscribeInbox(uid)
	defer h.ChatSvc.CloseConversationView(sub)

	convs, err := h.ChatSvc.ListMyConversations(c.Request.Context(), uid)
	if err != nil {
		failWith(c, err)
		return
	}

	flusher, ok := sseHeaders(c)
	if !ok {
		return
	}

	writeSSE(c, flusher, "snapshot", gin.H{
		"type":          "snapshot",
		"conversations": convs,
	})

	h.pumpEvents(c, flusher, sub)
}

func (h *Handler) pumpEvents(c *gin.Context, flusher http.Flusher, sub *chat.Subscription) {
	ctx := c.Request.Context()

	// heartbeat ticker (keeps connections alive)
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			writeSSE(c, flusher, string(ev.Type), ev)

		case <-ticker.C:
			writeSSE(c, flusher, "ping", gin.H{
				"type": "ping",
				"ts":   time.Now().Unix(),
			})

		case <-ctx.Done():
			return
		}
	}
}

func sseHeaders(c *gin.Context) (http.Flusher, bool) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx

	// avoid gin writing a JSON response later
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		// can't stream
		fmt.Fprintf(c.Writer, "event: error\ndata: flusher not supported\n\n")
		return nil, false
	}
	return flusher, true
}

func writeSSE(c *gin.Context, flusher http.Flusher, event string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		// last-resort: send a simple error that won't break SSE framing
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
		flusher.Flush()
		return
	}
	if event != "" {
		fmt.Fprintf(c.Writer, "event: %s\n", event)
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", string(b))
	flusher.Flush()
}
