package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/apperr"
	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/common"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/email"
	"github.com/parley-chat/parley/internal/httpapi/middleware"
)

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	SMTPSetting email.SMTPConfig
	ChatSvc     *chat.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, svc *chat.Service) *Handler {
	return &Handler{
		DB:  db,
		Cfg: cfg,
		SMTPSetting: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		},
		ChatSvc: svc,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func userIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// failWith maps the error taxonomy onto the HTTP surface. Every branch is a
// discriminated result; nothing is swallowed.
func failWith(c *gin.Context, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidTarget:
		common.Fail(c, http.StatusBadRequest, 10010, err.Error())
	case apperr.CodeInvalidMessage:
		common.Fail(c, http.StatusBadRequest, 10011, err.Error())
	case apperr.CodeNotFound:
		common.Fail(c, http.StatusNotFound, 40404, err.Error())
	case apperr.CodeUnavailable:
		common.Fail(c, http.StatusServiceUnavailable, 50301, "backing store unavailable")
	default:
		if chat.IsNotFound(err) {
			common.Fail(c, http.StatusNotFound, 40404, "not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}
