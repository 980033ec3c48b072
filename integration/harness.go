// Package integration spins up the fully wired HTTP server against an
// in-memory database and drives it over real HTTP, mirroring the
// dependency wiring in main.go.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/pongarena/server/api/rest"
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
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const testAdminKey = "integration-admin-key"

// TestServer wraps a real HTTP server with all subsystems wired together.
type TestServer struct {
	DB       *gorm.DB
	Cache    cache.Cache
	PubSub   cache.PubSub
	Presence *presence.Manager
	Tokens   *auth.Authority
	Server   *httptest.Server
	URL      string
	Sec      config.SecurityConfig

	auditSvc *audit.Service
	sched    *scheduler.Scheduler
}

// NewTestServer creates a fully wired server for integration testing.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     168 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}
	mcfg := config.MatchConfig{DefaultRounds: 3, MaxRounds: 11, EndpointBase: "/ws/pong/"}

	// ---- Services ----
	tokens := auth.NewAuthority(db, c, sec, logger)
	pm := presence.NewManager(logger)
	auditSvc := audit.New(db, logger)
	sched := scheduler.New(logger)

	identitySvc := identity.NewService(db, tokens, pm, logger)
	socialSvc := social.NewService(db, pubsub, pm, logger)
	matchSvc := match.NewService(db, mcfg, logger)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes (mirrors main.go) ----
	sseH := sse.NewHandler(pubsub, tokens, identitySvc, logger)
	authH := apirest.NewAuthHandler(identitySvc, tokens, auditSvc)
	playerH := apirest.NewPlayerHandler(identitySvc, auditSvc)
	socialH := apirest.NewSocialHandler(socialSvc, identitySvc, auditSvc)
	matchH := apirest.NewMatchHandler(matchSvc, identitySvc, auditSvc)
	adminH := apirest.NewAdminHandler(db, pm, sched, sseH, logger)

	api := r.Group("/api")
	{
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
		adminG.Use(apirest.AdminAuth(testAdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/online", adminH.OnlinePlayers)
		adminG.GET("/scheduler", adminH.SchedulerTasks)
		adminG.POST("/announce", adminH.Announce)
	}

	// ---- SSE ----
	r.GET("/events", sseH.ServeSSE)

	// ---- Start server ----
	server := httptest.NewServer(r)

	return &TestServer{
		DB:       db,
		Cache:    c,
		PubSub:   pubsub,
		Presence: pm,
		Tokens:   tokens,
		Server:   server,
		URL:      server.URL,
		Sec:      sec,
		auditSvc: auditSvc,
		sched:    sched,
	}
}

// Close shuts down the test server and its background workers.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.sched.Stop()
	ts.auditSvc.Stop(nil)
}

// PostJSON sends a POST request with a JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.request(t, http.MethodPost, path, body, token)
}

// Get sends a GET request with an optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.request(t, http.MethodGet, path, nil, token)
}

// Put sends a PUT request with a JSON body and optional Bearer token.
func (ts *TestServer) Put(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.request(t, http.MethodPut, path, body, token)
}

// Delete sends a DELETE request with a JSON body and optional Bearer token.
func (ts *TestServer) Delete(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.request(t, http.MethodDelete, path, body, token)
}

func (ts *TestServer) request(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON decodes a response body into target and closes the body.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// Player is a registered and logged-in test player.
type Player struct {
	ID      int64
	Name    string
	Access  string
	Refresh string
}

// Signup registers and logs in a player with the standard test password.
func (ts *TestServer) Signup(t *testing.T, name string) *Player {
	t.Helper()

	resp := ts.PostJSON(t, "/api/auth/register", map[string]string{
		"name": name, "password": TestPassword, "password2": TestPassword,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.PostJSON(t, "/api/auth/login", map[string]string{
		"name": name, "password": TestPassword,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Player struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"player"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	ReadJSON(t, resp, &result)

	return &Player{
		ID:      result.Player.ID,
		Name:    result.Player.Name,
		Access:  result.AccessToken,
		Refresh: result.RefreshToken,
	}
}

// TestPassword satisfies the server's password policy.
const TestPassword = "Sw0rdfish!"

var uniqueCounter int64

// UniqueID returns a short unique string suitable for player names.
func UniqueID(prefix string) string {
	n := atomic.AddInt64(&uniqueCounter, 1)
	return fmt.Sprintf("%s%d_%d", prefix, time.Now().UnixNano()%1e6, n)
}
