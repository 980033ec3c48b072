package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/audit"
	"github.com/pongarena/server/errcode"
	"github.com/pongarena/server/identity"
	mw "github.com/pongarena/server/middleware"
)

// PlayerHandler handles profile REST endpoints. All routes sit behind the
// access-token middleware.
type PlayerHandler struct {
	identity *identity.Service
	audit    *audit.Service
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(id *identity.Service, au *audit.Service) *PlayerHandler {
	return &PlayerHandler{identity: id, audit: au}
}

// Me handles GET /api/players/me.
func (h *PlayerHandler) Me(c *gin.Context) {
	player, err := h.identity.GetProfile(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"player": player})
}

// Get handles GET /api/players/:id.
func (h *PlayerHandler) Get(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c)
		return
	}
	player, err := h.identity.FindPlayer(c.Request.Context(), playerID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"player": player})
}

type renameRequest struct {
	Name     string `json:"name" binding:"required,max=32"`
	Password string `json:"password" binding:"required,max=64"`
}

// Rename handles PUT /api/players/me/name.
func (h *PlayerHandler) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	player, err := h.identity.Rename(c.Request.Context(), mw.GetAccountID(c), req.Name, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"player": player})
}

type changePasswordRequest struct {
	Current   string `json:"current_password" binding:"required,max=64"`
	Password  string `json:"password" binding:"required,max=64"`
	Password2 string `json:"password2" binding:"required,max=64"`
}

// ChangePassword handles PUT /api/players/me/password.
func (h *PlayerHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	err := h.identity.ChangePassword(c.Request.Context(),
		mw.GetAccountID(c), req.Current, req.Password, req.Password2)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "password changed"})
}

type deleteRequest struct {
	Password string `json:"password" binding:"required,max=64"`
}

// Delete handles DELETE /api/players/me. Destroys the account and all of
// its relations after password re-proof.
func (h *PlayerHandler) Delete(c *gin.Context) {
	started := time.Now()
	accountID := mw.GetAccountID(c)

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	err := h.identity.Delete(c.Request.Context(), accountID, req.Password)
	h.audit.Log(audit.Entry{
		TraceID:    mw.GetTraceID(c),
		AccountID:  &accountID,
		Action:     audit.ActionDeleteAccount,
		Error:      errString(err),
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(started).Milliseconds()),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "account deleted"})
}

// callerPlayerID resolves the authenticated account to its player ID for
// handlers that operate on the social graph.
func callerPlayerID(c *gin.Context, id *identity.Service) (int64, bool) {
	player, err := id.GetProfile(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		fail(c, errcode.ErrPlayerNotFound)
		return 0, false
	}
	return player.ID, true
}
