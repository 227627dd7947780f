package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parley-chat/parley/internal/common"
)

// Recovery turns panics into a JSON 500 instead of gin's default text body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Recovery] panic path=%s err=%v", c.FullPath(), r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
