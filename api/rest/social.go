package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/audit"
	"github.com/pongarena/server/identity"
	mw "github.com/pongarena/server/middleware"
	"github.com/pongarena/server/social"
)

// SocialHandler handles friendship and block REST endpoints.
type SocialHandler struct {
	social   *social.Service
	identity *identity.Service
	audit    *audit.Service
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(s *social.Service, id *identity.Service, au *audit.Service) *SocialHandler {
	return &SocialHandler{social: s, identity: id, audit: au}
}

// ListFriends handles GET /api/social/friends.
func (h *SocialHandler) ListFriends(c *gin.Context) {
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	entries, err := h.social.ListFriendships(c.Request.Context(), callerID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"friends": entries})
}

type friendRequestBody struct {
	PlayerID int64 `json:"player_id" binding:"required"`
}

// SendFriendRequest handles POST /api/social/friends/request.
func (h *SocialHandler) SendFriendRequest(c *gin.Context) {
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	row, err := h.social.SendRequest(c.Request.Context(), callerID, req.PlayerID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"friendship": row})
}

type respondBody struct {
	Accept *bool `json:"accept" binding:"required"`
}

// RespondFriendRequest handles POST /api/social/friends/:id/respond.
func (h *SocialHandler) RespondFriendRequest(c *gin.Context) {
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	friendshipID, err := parseID(c)
	if err != nil {
		badRequest(c)
		return
	}
	var req respondBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	row, err := h.social.Respond(c.Request.Context(), friendshipID, callerID, *req.Accept)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"friendship": row})
}

// CancelFriendRequest handles DELETE /api/social/friends/:id/request.
func (h *SocialHandler) CancelFriendRequest(c *gin.Context) {
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	friendshipID, err := parseID(c)
	if err != nil {
		badRequest(c)
		return
	}
	if err := h.social.Cancel(c.Request.Context(), friendshipID, callerID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "request cancelled"})
}

// RemoveFriend handles DELETE /api/social/friends/:id.
func (h *SocialHandler) RemoveFriend(c *gin.Context) {
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	friendshipID, err := parseID(c)
	if err != nil {
		badRequest(c)
		return
	}
	if err := h.social.Remove(c.Request.Context(), friendshipID, callerID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "friend removed"})
}

// ListBlocks handles GET /api/social/blocks.
func (h *SocialHandler) ListBlocks(c *gin.Context) {
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	rows, err := h.social.ListBlocks(c.Request.Context(), callerID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"blocks": rows})
}

type blockBody struct {
	PlayerID int64 `json:"player_id" binding:"required"`
}

// BlockPlayer handles POST /api/social/blocks.
func (h *SocialHandler) BlockPlayer(c *gin.Context) {
	started := time.Now()
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	var req blockBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	row, err := h.social.Block(c.Request.Context(), callerID, req.PlayerID)
	accountID := mw.GetAccountID(c)
	h.audit.Log(audit.Entry{
		TraceID:    mw.GetTraceID(c),
		AccountID:  &accountID,
		Action:     audit.ActionBlock,
		Request:    gin.H{"player_id": req.PlayerID},
		Error:      errString(err),
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(started).Milliseconds()),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"block": row})
}

// UnblockPlayer handles DELETE /api/social/blocks/:id.
func (h *SocialHandler) UnblockPlayer(c *gin.Context) {
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	blockID, err := parseID(c)
	if err != nil {
		badRequest(c)
		return
	}
	if err := h.social.Unblock(c.Request.Context(), callerID, blockID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "unblocked"})
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
