package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/audit"
	"github.com/pongarena/server/identity"
	"github.com/pongarena/server/match"
	mw "github.com/pongarena/server/middleware"
)

// MatchHandler handles match REST endpoints.
type MatchHandler struct {
	match    *match.Service
	identity *identity.Service
	audit    *audit.Service
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(m *match.Service, id *identity.Service, au *audit.Service) *MatchHandler {
	return &MatchHandler{match: m, identity: id, audit: au}
}

type createMatchBody struct {
	OpponentID int64  `json:"opponent_id" binding:"required"`
	Type       string `json:"type" binding:"required"`
	Rounds     int    `json:"rounds"`
}

// Create handles POST /api/matches. The caller is always player 1.
func (h *MatchHandler) Create(c *gin.Context) {
	started := time.Now()
	callerID, okCaller := callerPlayerID(c, h.identity)
	if !okCaller {
		return
	}
	var req createMatchBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	created, err := h.match.Create(c.Request.Context(), callerID, req.OpponentID, req.Type, req.Rounds)
	accountID := mw.GetAccountID(c)
	h.audit.Log(audit.Entry{
		TraceID:   mw.GetTraceID(c),
		AccountID: &accountID,
		Action:    audit.ActionCreateMatch,
		Request: gin.H{
			"opponent_id": req.OpponentID,
			"type":        req.Type,
			"rounds":      req.Rounds,
		},
		Error:      errString(err),
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(started).Milliseconds()),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"match":    created.Match,
		"rounds":   created.Rounds,
		"endpoint": created.Endpoint,
	})
}

// Get handles GET /api/matches/:id.
func (h *MatchHandler) Get(c *gin.Context) {
	matchID, err := parseID(c)
	if err != nil {
		badRequest(c)
		return
	}
	got, err := h.match.Get(c.Request.Context(), matchID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"match":    got.Match,
		"rounds":   got.Rounds,
		"endpoint": got.Endpoint,
	})
}
