package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/model"
	"github.com/pongarena/server/presence"
	"github.com/pongarena/server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Announcer broadcasts a message to every connected event stream.
type Announcer interface {
	Announce(ctx context.Context, message string) error
}

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db        *gorm.DB
	presence  *presence.Manager
	sched     *scheduler.Scheduler
	announcer Announcer
	logger    *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, pm *presence.Manager, sched *scheduler.Scheduler, an Announcer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, presence: pm, sched: sched, announcer: an, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var players, friendships, matches int64
	h.db.Model(&model.Player{}).Count(&players)
	h.db.Model(&model.Friendship{}).Where("status = ?", model.FriendshipAccepted).Count(&friendships)
	h.db.Model(&model.Match{}).Count(&matches)

	c.JSON(http.StatusOK, gin.H{
		"online_players":  h.presence.Count(),
		"total_players":   players,
		"friendships":     friendships,
		"matches":         matches,
		"scheduler_tasks": h.sched.Tasks(),
	})
}

// OnlinePlayers returns a snapshot of all online player IDs.
// GET /api/admin/online
func (h *AdminHandler) OnlinePlayers(c *gin.Context) {
	ids := h.presence.Snapshot()
	c.JSON(http.StatusOK, gin.H{"players": ids, "count": len(ids)})
}

// SchedulerTasks returns the status of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) SchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Tasks()})
}

type announceRequest struct {
	Message string `json:"message" binding:"required,max=512"`
}

// Announce broadcasts a message to all connected event streams.
// POST /api/admin/announce
func (h *AdminHandler) Announce(c *gin.Context) {
	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if err := h.announcer.Announce(c.Request.Context(), req.Message); err != nil {
		h.logger.Error("announce failed", zap.Error(err))
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "announced"})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
