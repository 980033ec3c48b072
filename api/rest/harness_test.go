package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/api/rest"
	"github.com/pongarena/server/api/sse"
	"github.com/pongarena/server/audit"
	"github.com/pongarena/server/auth"
	"github.com/pongarena/server/cache"
	"github.com/pongarena/server/config"
	"github.com/pongarena/server/identity"
	"github.com/pongarena/server/match"
	mw "github.com/pongarena/server/middleware"
	"github.com/pongarena/server/presence"
	"github.com/pongarena/server/scheduler"
	"github.com/pongarena/server/social"
	"github.com/pongarena/server/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "Sw0rdfish!"

// harness wires the full handler stack against an in-memory database,
// mirroring the route layout the server registers at startup.
type harness struct {
	router *gin.Engine
	db     *gorm.DB
	pm     *presence.Manager
	sched  *scheduler.Scheduler
	ps     cache.PubSub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := testutil.Logger()

	sec := config.SecurityConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 168 * time.Hour,
	}
	mcfg := config.MatchConfig{DefaultRounds: 3, MaxRounds: 11, EndpointBase: "/ws/pong/"}

	tokens := auth.NewAuthority(db, c, sec, logger)
	pm := presence.NewManager(logger)
	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(nil) })
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	identitySvc := identity.NewService(db, tokens, pm, logger)
	socialSvc := social.NewService(db, ps, pm, logger)
	matchSvc := match.NewService(db, mcfg, logger)

	sseH := sse.NewHandler(ps, tokens, identitySvc, logger)
	authH := rest.NewAuthHandler(identitySvc, tokens, auditSvc)
	playerH := rest.NewPlayerHandler(identitySvc, auditSvc)
	socialH := rest.NewSocialHandler(socialSvc, identitySvc, auditSvc)
	matchH := rest.NewMatchHandler(matchSvc, identitySvc, auditSvc)
	adminH := rest.NewAdminHandler(db, pm, sched, sseH, logger)

	r := gin.New()
	api := r.Group("/api")

	authG := api.Group("/auth")
	authG.POST("/register", authH.Register)
	authG.POST("/login", authH.Login)
	authG.POST("/refresh", authH.Refresh)
	authG.POST("/logout", mw.Auth(sec), authH.Logout)

	playersG := api.Group("/players")
	playersG.Use(mw.Auth(sec))
	playersG.GET("/me", playerH.Me)
	playersG.GET("/:id", playerH.Get)
	playersG.PUT("/me/name", playerH.Rename)
	playersG.PUT("/me/password", playerH.ChangePassword)
	playersG.DELETE("/me", playerH.Delete)

	socialG := api.Group("/social")
	socialG.Use(mw.Auth(sec))
	socialG.GET("/friends", socialH.ListFriends)
	socialG.POST("/friends/request", socialH.SendFriendRequest)
	socialG.POST("/friends/:id/respond", socialH.RespondFriendRequest)
	socialG.DELETE("/friends/:id/request", socialH.CancelFriendRequest)
	socialG.DELETE("/friends/:id", socialH.RemoveFriend)
	socialG.GET("/blocks", socialH.ListBlocks)
	socialG.POST("/blocks", socialH.BlockPlayer)
	socialG.DELETE("/blocks/:id", socialH.UnblockPlayer)

	matchesG := api.Group("/matches")
	matchesG.Use(mw.Auth(sec))
	matchesG.POST("", matchH.Create)
	matchesG.GET("/:id", matchH.Get)

	adminG := api.Group("/admin")
	adminG.Use(rest.AdminAuth("test-admin-key"))
	adminG.GET("/metrics", adminH.Metrics)
	adminG.GET("/online", adminH.OnlinePlayers)
	adminG.GET("/scheduler", adminH.SchedulerTasks)
	adminG.POST("/announce", adminH.Announce)

	return &harness{router: r, db: db, pm: pm, sched: sched, ps: ps}
}

func (h *harness) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// session is a registered, logged-in player ready to call the API.
type session struct {
	PlayerID int64
	Access   string
	Refresh  string
}

func (s *session) bearer() []string {
	return []string{"Authorization", "Bearer " + s.Access}
}

func (h *harness) signup(t *testing.T, name string) *session {
	t.Helper()
	w := h.do(http.MethodPost, "/api/auth/register", gin.H{
		"name": name, "password": testPassword, "password2": testPassword,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/api/auth/login", gin.H{
		"name": name, "password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	player := resp["player"].(map[string]interface{})
	return &session{
		PlayerID: int64(player["id"].(float64)),
		Access:   resp["access_token"].(string),
		Refresh:  resp["refresh_token"].(string),
	}
}

func code(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	resp := decode(t, w)
	return int(resp["code"].(float64))
}
