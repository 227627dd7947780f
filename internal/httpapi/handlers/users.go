package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/common"
	"github.com/parley-chat/parley/internal/email"
	"github.com/parley-chat/parley/internal/models"
)

type createUserReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "email, password and display_name required")
		return
	}
	if len(req.Password) < 6 {
		common.Fail(c, http.StatusBadRequest, 10005, "password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	uid, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20004, "failed to generate user id")
		return
	}

	user := models.User{
		UserID:       uid,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		AvatarURL:    req.AvatarURL,
		PasswordHash: hash,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email already exists)")
		return
	}

	token, err := auth.SignJWT(user.UserID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	// send welcome email
	go func(to, name string) {
		subject := "Welcome to Parley — Your account is ready"
		body := "Hello " + name + ",\n\n" +
			"Welcome to Parley. Your account has been successfully created.\n\n" +
			"If you did not request this account, please contact our support immediately.\n\n" +
			"Best regards,\n" +
			"Parley\n"
		_ = email.SendText(h.SMTPSetting, to, subject, body)
	}(user.Email, user.DisplayName)

	common.OK(c, gin.H{
		"user_id":      user.UserID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"token":        token,
	})
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var user models.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// identical answer for unknown email and bad password
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid email or password")
		return
	}

	token, err := auth.SignJWT(user.UserID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	common.OK(c, gin.H{
		"user_id":      user.UserID,
		"display_name": user.DisplayName,
		"token":        token,
	})
}

func (h *Handler) Me(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var user models.User
	if err := h.DB.Where("user_id = ?", uid).First(&user).Error; err != nil {
		common.Fail(c, http.StatusNotFound, 40401, "user not found")
		return
	}
	common.OK(c, user)
}

// SearchUserByEmail is the discovery-by-address lookup. A miss is a negative
// search result, not an error path worth a 5xx.
func (h *Handler) SearchUserByEmail(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if q == "" {
		common.Fail(c, http.StatusBadRequest, 10004, "email query required")
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", q).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40402, "no user found with this email")
			return
		}
		log.Printf("[SearchUserByEmail] query failed email=%s err=%v", q, err)
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	if user.UserID == uid {
		common.Fail(c, http.StatusBadRequest, 10006, "you cannot start a chat with yourself")
		return
	}

	common.OK(c, gin.H{
		"user_id":      user.UserID,
		"display_name": user.DisplayName,
		"email":        user.Email,
		"avatar_url":   user.AvatarURL,
	})
}

// ListUsers returns every profile except the caller's, for the new-chat
// picker.
func (h *Handler) ListUsers(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var users []models.User
	if err := h.DB.Where("user_id <> ?", uid).Order("display_name ASC").Find(&users).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"users": users})
}

func (h *Handler) GetUserByID(c *gin.Context) {
	id := c.Param("id")

	var user models.User
	if err := h.DB.Where("user_id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, user)
}
