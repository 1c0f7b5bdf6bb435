package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

var allowedOrigins []string

// SetAllowedOrigins configures the browser origins accepted beyond
// localhost. Called once at startup.
func SetAllowedOrigins(origins []string) {
	allowedOrigins = origins
}

// AllowedOrigin reports whether a browser origin may call the API.
// Localhost is always accepted.
func AllowedOrigin(origin string) bool {
	if origin == "http://localhost" || origin == "https://localhost" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "https://localhost:") {
		return true
	}
	return slices.Contains(allowedOrigins, origin)
}

// CORS handles cross-origin headers and preflight requests.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		origin := c.GetHeader("Origin")

		if origin != "" && AllowedOrigin(origin) {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			header.Set("Access-Control-Allow-Headers", "Content-Type, Range")
			header.Set("Access-Control-Max-Age", "300")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
