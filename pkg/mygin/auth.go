package mygin

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Authorize 校验 Authorization: Bearer <token>，token 为空时拒绝所有请求
func Authorize(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		given, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(given)), []byte(token)) != 1 {
			ShowError(c, ErrInfo{Code: http.StatusUnauthorized, Msg: "unauthorized"})
			return
		}
		c.Next()
	}
}
