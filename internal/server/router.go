package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slicemeow/internal/auth"
	"slicemeow/internal/catalog"
	"slicemeow/internal/logger"
	"slicemeow/internal/store"
	synchub "slicemeow/internal/sync"
	"slicemeow/internal/upload"
	"slicemeow/pkg/utils"
)

type Deps struct {
	Config  utils.Config
	Backend store.Backend
	Hub     *synchub.Hub
	Log     *zap.Logger
	// Uploads overrides the local disk storage when set.
	Uploads upload.Storage
}

func TokenService(cfg utils.AuthConfig) auth.TokenService {
	d := cfg.JWTDuration
	if d <= 0 {
		d = 24 * time.Hour
	}
	return auth.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: d,
	}
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinLogger(log.Named("http")))
	_ = router.SetTrustedProxies(cfg.Server.TrustedProxies)

	tokens := TokenService(cfg.Auth)
	guard := auth.RequireAdmin(tokens)

	// page guard sees every request, 404s included
	router.Use(auth.PageGuard(tokens))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.Store.Driver})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := d.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.Backend.Ping(ctx); err != nil {
			log.Warn("readiness ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"store":       "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/ws", synchub.WSHandler(d.Hub))

	router.GET("/admin", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{"email": claims.Email, "role": claims.Role})
	})

	api := router.Group("/api")

	authHandler := auth.NewHandler(d.Backend, tokens, log.Named("auth"))
	authHandler.SecureCookie = cfg.Auth.SecureCookie
	authHandler.RegisterRoutes(api)

	catalogLog := log.Named("catalog")
	for _, res := range []catalog.Resource{catalog.MovieResource, catalog.SeriesResource} {
		catalog.NewHandler(d.Backend, res, d.Hub, catalogLog).RegisterRoutes(api, guard)
	}
	catalog.NewHomeHandler(d.Backend, catalogLog).RegisterRoutes(api, guard)

	storage := d.Uploads
	if storage == nil {
		storage = upload.NewLocalStorage(cfg.Upload.Dir, cfg.Upload.URLPath)
	}
	upload.NewHandler(storage, cfg.Upload.Enabled, cfg.Upload.MaxBytes, log.Named("upload")).
		RegisterRoutes(api, guard)
	if cfg.Upload.Enabled && cfg.Upload.URLPath != "" {
		router.Static(cfg.Upload.URLPath, cfg.Upload.Dir)
	}

	return router
}
