package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/pongarena/server/api/rest"
	"github.com/pongarena/server/api/sse"
	"github.com/pongarena/server/audit"
	"github.com/pongarena/server/auth"
	"github.com/pongarena/server/cache"
	"github.com/pongarena/server/config"
	dbadapter "github.com/pongarena/server/db"
	"github.com/pongarena/server/identity"
	"github.com/pongarena/server/match"
	mw "github.com/pongarena/server/middleware"
	"github.com/pongarena/server/model"
	"github.com/pongarena/server/presence"
	"github.com/pongarena/server/scheduler"
	"github.com/pongarena/server/social"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Core services ----
	tokens := auth.NewAuthority(db, c, cfg.Security, logger)
	pm := presence.NewManager(logger)
	identitySvc := identity.NewService(db, tokens, pm, logger)
	socialSvc := social.NewService(db, pubsub, pm, logger)
	matchSvc := match.NewService(db, cfg.Match, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	sched.AddTicker("token_purge", time.Hour, func() {
		n, err := tokens.PurgeExpired(context.Background())
		if err != nil {
			logger.Warn("token purge failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("purged expired refresh tokens", zap.Int64("count", n))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
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
		authG.POST("/logout", mw.Auth(cfg.Security), authH.Logout)

		playersG := api.Group("/players")
		playersG.Use(mw.Auth(cfg.Security))
		playersG.GET("/me", playerH.Me)
		playersG.GET("/:id", playerH.Get)
		playersG.PUT("/me/name", playerH.Rename)
		playersG.PUT("/me/password", playerH.ChangePassword)
		playersG.DELETE("/me", playerH.Delete)

		socialG := api.Group("/social")
		socialG.Use(mw.Auth(cfg.Security))
		socialG.GET("/friends", socialH.ListFriends)
		socialG.POST("/friends/request", socialH.SendFriendRequest)
		socialG.POST("/friends/:id/respond", socialH.RespondFriendRequest)
		socialG.DELETE("/friends/:id/request", socialH.CancelFriendRequest)
		socialG.DELETE("/friends/:id", socialH.RemoveFriend)
		socialG.GET("/blocks", socialH.ListBlocks)
		socialG.POST("/blocks", socialH.BlockPlayer)
		socialG.DELETE("/blocks/:id", socialH.UnblockPlayer)

		matchesG := api.Group("/matches")
		matchesG.Use(mw.Auth(cfg.Security))
		matchesG.POST("", matchH.Create)
		matchesG.GET("/:id", matchH.Get)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		if len(cfg.Server.AdminIPs) > 0 {
			adminG.Use(mw.IPWhitelist(cfg.Server.AdminIPs))
		}
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/online", adminH.OnlinePlayers)
		adminG.GET("/scheduler", adminH.SchedulerTasks)
		adminG.POST("/announce", adminH.Announce)
	}

	// ---- SSE ----
	r.GET("/events", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
