package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/config"
	"github.com/pongarena/server/errcode"
)

const AccountIDKey = "account_id"

// Auth validates the Bearer access token. Access tokens are checked by
// signature, expiry and type only; revocation applies to refresh tokens.
func Auth(sec config.SecurityConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWith(ctx, errcode.ErrTokenRequired)
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil || claims.TokenType != TokenTypeAccess {
			abortWith(ctx, errcode.ErrInvalidToken)
			return
		}

		ctx.Set(AccountIDKey, claims.AccountID)
		ctx.Next()
	}
}

// GetAccountID retrieves the authenticated account ID from the Gin context.
func GetAccountID(c *gin.Context) int64 {
	if v, exists := c.Get(AccountIDKey); exists {
		return v.(int64)
	}
	return 0
}

func abortWith(c *gin.Context, e *errcode.Error) {
	c.AbortWithStatusJSON(e.HTTPStatus(), gin.H{"code": e.Code, "error": e.Message})
}
