package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/audit"
	"github.com/pongarena/server/auth"
	"github.com/pongarena/server/identity"
	mw "github.com/pongarena/server/middleware"
)

// AuthHandler handles registration and session REST endpoints.
type AuthHandler struct {
	identity *identity.Service
	tokens   *auth.Authority
	audit    *audit.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(id *identity.Service, tokens *auth.Authority, au *audit.Service) *AuthHandler {
	return &AuthHandler{identity: id, tokens: tokens, audit: au}
}

type registerRequest struct {
	Name      string `json:"name" binding:"required,max=32"`
	Password  string `json:"password" binding:"required,max=64"`
	Password2 string `json:"password2" binding:"required,max=64"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	started := time.Now()
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	player, err := h.identity.Register(c.Request.Context(), req.Name, req.Password, req.Password2)
	h.audit.Log(audit.Entry{
		TraceID:    mw.GetTraceID(c),
		PlayerName: req.Name,
		Action:     audit.ActionRegister,
		Request:    gin.H{"name": req.Name},
		Error:      errString(err),
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(started).Milliseconds()),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"player": player})
}

type loginRequest struct {
	Name     string `json:"name" binding:"required,max=32"`
	Password string `json:"password" binding:"required,max=64"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	started := time.Now()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	player, pair, err := h.identity.Login(c.Request.Context(), req.Name, req.Password)
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		PlayerName: req.Name,
		Action:     audit.ActionLogin,
		Error:      errString(err),
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(started).Milliseconds()),
	}
	if player != nil {
		entry.AccountID = &player.AccountID
	}
	h.audit.Log(entry)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"player":            player,
		"access_token":      pair.Access,
		"refresh_token":     pair.Refresh,
		"access_expires_at": pair.AccessExpiresAt,
	})
}

// refreshRequest deliberately has no required binding: a missing or
// empty token must reach the token authority so the client gets the
// token-required code, not a generic bad-request.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/auth/refresh. It takes the refresh token in
// the body, not the Authorization header, so an expired access token
// never blocks renewal.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	access, expiresAt, err := h.tokens.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"access_token":      access,
		"access_expires_at": expiresAt,
	})
}

// Logout handles POST /api/auth/logout. Requires a valid access token and
// revokes the refresh token given in the body.
func (h *AuthHandler) Logout(c *gin.Context) {
	started := time.Now()
	accountID := mw.GetAccountID(c)

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	err := h.identity.Logout(c.Request.Context(), accountID, req.RefreshToken)
	h.audit.Log(audit.Entry{
		TraceID:    mw.GetTraceID(c),
		AccountID:  &accountID,
		Action:     audit.ActionLogout,
		Error:      errString(err),
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(started).Milliseconds()),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "logged out"})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
