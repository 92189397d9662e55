package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

type SecurityConfig struct {
	HSTSMaxAge     int
	FrameOptions   string
	ReferrerPolicy string
	// NoStorePrefix marks responses under it as uncacheable.
	NoStorePrefix string
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:     31536000,
		FrameOptions:   "DENY",
		ReferrerPolicy: "no-referrer",
		NoStorePrefix:  "/api/",
	}
}

// SecurityHeaders sets the browser hardening headers. API responses carry
// patient data and are never cached.
func SecurityHeaders(cfg SecurityConfig) gin.HandlerFunc {
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge)
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		if hsts != "" {
			h.Set("Strict-Transport-Security", hsts)
		}
		h.Set("X-Frame-Options", cfg.FrameOptions)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", cfg.ReferrerPolicy)
		if cfg.NoStorePrefix != "" && strings.HasPrefix(c.Request.URL.Path, cfg.NoStorePrefix) {
			h.Set("Cache-Control", "no-store")
		}
		c.Next()
	}
}
