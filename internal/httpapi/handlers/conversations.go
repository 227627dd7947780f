package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/common"
	"github.com/parley-chat/parley/internal/models"
)

type startConversationReq struct {
	OtherUserID string `json:"other_user_id" binding:"required"`
}

func (h *Handler) StartConversation(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req startConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	// the counterpart must be a known profile; never mint metadata for
	// an id nobody owns
	var other models.User
	if err := h.DB.Where("user_id = ?", req.OtherUserID).First(&other).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	conv, err := h.ChatSvc.StartPrivateConversation(c.Request.Context(), uid, req.OtherUserID)
	if err != nil {
		failWith(c, err)
		return
	}
	common.OK(c, gin.H{"conversation": conv})
}

func (h *Handler) ListConversations(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	convs, err := h.ChatSvc.ListMyConversations(c.Request.Context(), uid)
	if err != nil {
		failWith(c, err)
		return
	}
	common.OK(c, gin.H{"conversations": convs})
}

type sendMessageReq struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	key := c.Param("key")
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	msg, err := h.ChatSvc.SendMessage(c.Request.Context(), key, uid, req.Text)
	if err != nil {
		failWith(c, err)
		return
	}
	common.OK(c, gin.H{"message": msg})
}

func (h *Handler) ListMessages(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	key := c.Param("key")
	msgs, err := h.ChatSvc.ReadMessages(c.Request.Context(), key, uid)
	if err != nil {
		failWith(c, err)
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}
