package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tanisingh134/carbon/internal/activity"
	"github.com/tanisingh134/carbon/internal/auth"
	"github.com/tanisingh134/carbon/internal/leaderboard"
	"github.com/tanisingh134/carbon/internal/live"
	"github.com/tanisingh134/carbon/internal/logger"
)

// Config wires the HTTP surface to the rest of the service
type Config struct {
	Store          Store
	Activities     *activity.Service
	Publisher      *live.Publisher
	Leaderboard    leaderboard.Board
	Issuer         *auth.Issuer
	Log            *logger.Logger
	AllowedOrigins []string
	// Ready reports whether dependencies are reachable; nil means always ready
	Ready func(ctx context.Context) error
}

func NewRouter(cfg Config) *gin.Engine {
	h := NewHandler(cfg)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(cfg.Log))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.GET("/leaderboard", h.Leaderboard)
	}

	protected := api.Group("/")
	protected.Use(auth.Middleware(cfg.Issuer))
	{
		protected.GET("/user", h.Me)
		protected.GET("/activities", h.ListActivities)
		protected.POST("/activities", h.CreateActivity)
		protected.GET("/carbon-score", h.CarbonScore)
		protected.GET("/suggestions", h.Suggestions)
		protected.GET("/achievements", h.Achievements)
		protected.GET("/events", h.Events)
		protected.GET("/ws", h.WebSocket)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}

// RequestLogger writes one structured line per request
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if userID := auth.UserID(c); userID != "" {
			fields = append(fields, "user_id", userID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("HTTP request", fields...)
			return
		}
		log.Debug("HTTP request", fields...)
	}
}
