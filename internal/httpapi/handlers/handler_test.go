package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/apperr"
)

func TestFailWith_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{apperr.ErrSelfConversation, http.StatusBadRequest},
		{apperr.ErrEmptyMessage, http.StatusBadRequest},
		{apperr.ErrConvNotFound, http.StatusNotFound},
		{apperr.Unavailable("store down", nil), http.StatusServiceUnavailable},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		failWith(c, tc.err)
		if w.Code != tc.status {
			t.Fatalf("err %v: expected status %d, got %d", tc.err, tc.status, w.Code)
		}
	}
}
