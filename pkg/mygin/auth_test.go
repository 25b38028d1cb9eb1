package mygin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func newRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", Authorize(token), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		header string
		code   int
	}{
		{"valid", "s3cret", "Bearer s3cret", http.StatusOK},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"no scheme", "s3cret", "s3cret", http.StatusUnauthorized},
		{"missing", "s3cret", "", http.StatusUnauthorized},
		{"server without token", "", "Bearer ", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			newRouter(tc.token).ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
			if tc.code != http.StatusOK {
				assert.Equal(t, int64(http.StatusUnauthorized), gjson.Get(w.Body.String(), "code").Int())
			}
		})
	}
}
