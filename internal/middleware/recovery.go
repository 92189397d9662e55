package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
)

// Recovery turns a panic into a JSON 500. A client that hung up mid
// response (common on /api/events) is logged at warn and gets no body.
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			evt := logger.Error()
			if clientGone(rec) {
				evt = logger.Warn()
			}
			evt.Interface("error", rec).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("request_id", c.GetString(ContextRequestID))

			if clientGone(rec) {
				evt.Msg("client connection closed")
				c.Abort()
				return
			}
			evt.Str("stack", string(debug.Stack())).Msg("panic recovered")
			handler.Fail(c, http.StatusInternalServerError, "Server error")
		}()
		c.Next()
	}
}

func clientGone(rec interface{}) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var sysErr *os.SyscallError
		if errors.As(opErr, &sysErr) {
			msg := strings.ToLower(sysErr.Error())
			return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
		}
	}
	return false
}
