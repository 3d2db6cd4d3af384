package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tanisingh134/carbon/internal/activity"
	"github.com/tanisingh134/carbon/internal/auth"
	"github.com/tanisingh134/carbon/internal/carbon"
	"github.com/tanisingh134/carbon/internal/connection"
	"github.com/tanisingh134/carbon/internal/database"
	"github.com/tanisingh134/carbon/internal/insight"
	"github.com/tanisingh134/carbon/internal/leaderboard"
	"github.com/tanisingh134/carbon/internal/live"
	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/stream"
)

// Store is what the handlers read and write directly
type Store interface {
	CreateUser(ctx context.Context, user *database.User) error
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	GetUser(ctx context.Context, id string) (*database.User, error)
	FindByUser(ctx context.Context, userID string) ([]carbon.Activity, error)
}

type Handler struct {
	store          Store
	activities     *activity.Service
	publisher      *live.Publisher
	board          leaderboard.Board
	issuer         *auth.Issuer
	log            *logger.Logger
	allowedOrigins map[string]struct{}
	ready          func(ctx context.Context) error
}

func NewHandler(cfg Config) *Handler {
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = struct{}{}
	}
	return &Handler{
		store:          cfg.Store,
		activities:     cfg.Activities,
		publisher:      cfg.Publisher,
		board:          cfg.Leaderboard,
		issuer:         cfg.Issuer,
		log:            cfg.Log.With("component", "api"),
		allowedOrigins: origins,
		ready:          cfg.Ready,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func (h *Handler) Health(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "Email and password required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &database.User{Email: strings.TrimSpace(req.Email), PasswordHash: hash}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			respondError(c, http.StatusBadRequest, "Email already exists")
			return
		}
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.log.Info("User registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered"})
}

func (h *Handler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, _, err := h.issuer.Issue(user.ID)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"email": user.Email},
	})
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.store.GetUser(c.Request.Context(), auth.UserID(c))
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": user.Email})
}

// userActivities loads the caller's activities or writes an error response
func (h *Handler) userActivities(c *gin.Context) ([]carbon.Activity, bool) {
	activities, err := h.store.FindByUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to load activities")
		return nil, false
	}
	if activities == nil {
		activities = []carbon.Activity{}
	}
	return activities, true
}

func (h *Handler) ListActivities(c *gin.Context) {
	if activities, ok := h.userActivities(c); ok {
		c.JSON(http.StatusOK, activities)
	}
}

func (h *Handler) CreateActivity(c *gin.Context) {
	var in activity.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid activity")
		return
	}

	a, err := h.activities.Record(c.Request.Context(), auth.UserID(c), in)
	if errors.Is(err, activity.ErrInvalidActivity) {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to record activity")
		return
	}

	c.JSON(http.StatusCreated, a)
}

func (h *Handler) CarbonScore(c *gin.Context) {
	if activities, ok := h.userActivities(c); ok {
		c.JSON(http.StatusOK, gin.H{"score": carbon.Aggregate(activities)})
	}
}

func (h *Handler) Suggestions(c *gin.Context) {
	if activities, ok := h.userActivities(c); ok {
		c.JSON(http.StatusOK, insight.Suggestions(activities))
	}
}

func (h *Handler) Achievements(c *gin.Context) {
	if activities, ok := h.userActivities(c); ok {
		c.JSON(http.StatusOK, insight.Achievements(activities))
	}
}

func (h *Handler) Leaderboard(c *gin.Context) {
	standings, err := h.board.Standings(c.Request.Context())
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}
	c.JSON(http.StatusOK, standings)
}

// Events streams live updates over server-sent events until the client leaves
func (h *Handler) Events(c *gin.Context) {
	emitter, err := stream.NewSSE(c.Writer)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	sub := h.publisher.Subscribe(auth.UserID(c), emitter,
		live.Transport("sse"),
		live.ExpiresAt(auth.ExpiresAt(c)),
	)

	err = sub.Run(c.Request.Context())
	switch {
	case err == nil:
	case errors.Is(err, connection.ErrMaxSubscriptionsReached) && !emitter.Started():
		respondError(c, http.StatusServiceUnavailable, "Too many live subscriptions")
	default:
		h.log.Debug("SSE stream ended", "user_id", auth.UserID(c), "error", err)
	}
}

// WebSocket streams the same updates as Events over a websocket
func (h *Handler) WebSocket(c *gin.Context) {
	ws, err := stream.Upgrade(c.Writer, c.Request, h.checkOrigin)
	if err != nil {
		// the upgrader already answered the request
		h.log.Debug("Websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := ws.Watch(c.Request.Context())
	defer cancel()

	sub := h.publisher.Subscribe(auth.UserID(c), ws,
		live.Transport("websocket"),
		live.ExpiresAt(auth.ExpiresAt(c)),
	)

	code, reason := websocket.CloseNormalClosure, ""
	if err := sub.Run(ctx); err != nil {
		if errors.Is(err, connection.ErrMaxSubscriptionsReached) {
			code, reason = websocket.CloseTryAgainLater, "too many live subscriptions"
		} else {
			h.log.Debug("Websocket stream ended", "user_id", auth.UserID(c), "error", err)
		}
	}
	ws.Close(code, reason)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	_, ok := h.allowedOrigins[origin]
	return ok
}
