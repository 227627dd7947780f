package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/httpapi/middleware"
	"github.com/parley-chat/parley/internal/models"
)

const (
	testU1 = "01TESTUSERAAAAAAAAAAAAAAAA"
	testU2 = "01TESTUSERBBBBBBBBBBBBBBBB"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	// one named in-memory db per test, shared across pooled connections
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := "file:" + name + "?mode=memory&cache=shared&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &chat.Conversation{}, &chat.Message{}, &chat.NotificationJob{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	svc := chat.NewService(chat.NewRepo(db), chat.NewHub())
	return NewHandler(db, config.Config{JWTSecret: "test-secret"}, svc)
}

func seedUser(t *testing.T, db *gorm.DB, uid, mail string) {
	t.Helper()
	if err := db.Create(&models.User{
		UserID:       uid,
		Email:        mail,
		DisplayName:  strings.Split(mail, "@")[0],
		PasswordHash: "x",
	}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func postAs(t *testing.T, uid, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.UserIDKey, uid)
	c.Request = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestStartConversation_UnknownCounterpartIs404(t *testing.T) {
	h := newTestHandler(t)
	seedUser(t, h.DB, testU1, "alice@example.com")

	c, w := postAs(t, testU1, "/conversations", `{"other_user_id":"`+testU2+`"}`)
	h.StartConversation(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown counterpart, got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	h.DB.Model(&chat.Conversation{}).Count(&count)
	if count != 0 {
		t.Fatalf("metadata row minted for a counterpart nobody owns")
	}
}

func TestStartConversation_KnownCounterpartSucceeds(t *testing.T) {
	h := newTestHandler(t)
	seedUser(t, h.DB, testU1, "alice@example.com")
	seedUser(t, h.DB, testU2, "bob@example.com")

	c, w := postAs(t, testU1, "/conversations", `{"other_user_id":"`+testU2+`"}`)
	h.StartConversation(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Conversation chat.Conversation `json:"conversation"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !chat.ValidKey(resp.Data.Conversation.Key) {
		t.Fatalf("bad conversation key: %q", resp.Data.Conversation.Key)
	}
}
