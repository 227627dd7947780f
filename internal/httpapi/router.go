package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/common"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/httpapi/handlers"
	"github.com/parley-chat/parley/internal/httpapi/middleware"
)

func NewRouter(db *gorm.DB, cfg config.Config, svc *chat.Service) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, svc)

	r.GET("/ping", h.Ping)

	// signup & auth
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// identity directory (JWT required)
	authGroup.GET("/users", h.ListUsers)
	authGroup.GET("/users/search", h.SearchUserByEmail)
	authGroup.GET("/users/:id", h.GetUserByID)

	// conversations
	authGroup.POST("/conversations", h.StartConversation)
	authGroup.GET("/conversations", h.ListConversations)
	authGroup.GET("/conversations/stream", h.StreamInbox)
	authGroup.POST("/conversations/:key/messages", h.SendMessage)
	authGroup.GET("/conversations/:key/messages", h.ListMessages)
	authGroup.GET("/conversations/:key/stream", h.StreamConversation)

	return r
}
