package server

import (
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// recovery traps handler panics, logs them, and answers with a plain 500.
// OFX clients expect text bodies, so no JSON error envelope. Panics caused
// by the client disconnecting mid-write are logged but get no response:
// the connection is already gone.
func recovery(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			panicValue := recover()
			if panicValue == nil {
				return
			}
			disconnected := isClientDisconnect(panicValue)
			if ce := logger.Check(zap.ErrorLevel, "[Recovery]"); ce != nil {
				fields := []zap.Field{zap.Any("error", panicValue)}
				if disconnected {
					fields = append(fields, zap.Bool("clientDisconnected", true))
				}
				if stack && !disconnected && ce.Entry.Stack == "" {
					fields = append(fields, zap.Stack("stacktrace"))
				} else if !stack {
					ce.Entry.Stack = ""
				}
				ce.Write(fields...)
			}
			if disconnected {
				c.Abort()
				return
			}
			c.String(http.StatusInternalServerError, "Internal server error\n")
			c.Abort()
		}()
		c.Next()
	}
}

// isClientDisconnect reports whether a panic value is a write failure from
// the client hanging up, e.g. a broken pipe or reset connection
func isClientDisconnect(panicValue interface{}) bool {
	opErr, ok := panicValue.(*net.OpError)
	if !ok {
		return false
	}
	syscallErr, ok := opErr.Err.(*os.SyscallError)
	if !ok {
		return false
	}
	message := strings.ToLower(syscallErr.Error())
	return strings.Contains(message, "broken pipe") || strings.Contains(message, "connection reset by peer")
}
