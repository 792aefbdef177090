// Package server exposes the wandrr HTTP API.
package server

import (
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/at-ishikawa/wandrr/internal/auth"
	"github.com/at-ishikawa/wandrr/internal/config"
	"github.com/at-ishikawa/wandrr/internal/identity"
	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/at-ishikawa/wandrr/internal/usercache"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Dependencies struct {
	Resolver  *identity.Resolver
	Issuer    *auth.Issuer
	Users     *usercache.Facade
	Gateway   *store.Gateway
	Generator *lesson.Generator
	Content   *lesson.Content
	Gatherer  prometheus.Gatherer
	Log       *logger.Logger
}

type Handler struct {
	resolver  *identity.Resolver
	issuer    *auth.Issuer
	users     *usercache.Facade
	gateway   *store.Gateway
	generator *lesson.Generator
	content   *lesson.Content
	log       *logger.Logger
	clock     clock.Clock
	intn      func(int) int
}

func NewHandler(deps Dependencies) *Handler {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		resolver:  deps.Resolver,
		issuer:    deps.Issuer,
		users:     deps.Users,
		gateway:   deps.Gateway,
		generator: deps.Generator,
		content:   deps.Content,
		log:       log.With("component", "server"),
		clock:     clock.WallClock,
		intn:      rand.IntN,
	}
}

// NewRouter registers every API route. gatherer may be nil to leave /metrics out.
func NewRouter(cfg config.ServerConfig, h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(h.log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}))

	router.GET("/healthcheck", healthCheck)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.Use(h.optionalAuth())
	{
		api.POST("/auth/login", h.Login)
		api.POST("/auth/signup", h.Signup)

		api.GET("/user/:userId", h.GetUser)
		api.GET("/user/local/:userId", h.GetLocalUser)

		api.GET("/lesson/today/:userId", h.TodayLesson)
		api.GET("/lesson/local/:userId", h.LocalLesson)
		api.POST("/lesson/submit", h.Submit)
		api.POST("/lesson/submit-local", h.SubmitLocal)
		api.POST("/lesson/generate", h.GenerateCustom)

		api.GET("/leaderboard", h.Leaderboard)
		api.GET("/cache/stats", h.CacheStats)
	}
	return router
}

// NewHTTPServer serves handler over HTTP/1.1 and cleartext HTTP/2.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
