package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireBearer guards /api/* and /swagger with a static token. An empty
// token disables the guard. Health endpoints stay open.
func RequireBearer(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		p := c.Request.URL.Path
		if p == "/healthz" || p == "/readyz" {
			c.Next()
			return
		}
		if !strings.HasPrefix(p, "/api/") && !strings.HasPrefix(p, "/swagger") {
			c.Next()
			return
		}
		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		got, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiResponse{Code: http.StatusUnauthorized, Message: "missing bearer token"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiResponse{Code: http.StatusUnauthorized, Message: "invalid bearer token"})
			return
		}
		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
