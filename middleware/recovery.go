package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/errcode"
	"go.uber.org/zap"
)

// Recovery converts a handler panic into a logged 500 with the internal
// error code, so a single bad request cannot take the process down.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("error", r),
					zap.String("trace_id", GetTraceID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				abortWith(c, errcode.ErrInternal)
			}
		}()
		c.Next()
	}
}
