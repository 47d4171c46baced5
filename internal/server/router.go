package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddleapp/huddle/backend/internal/announce"
	"github.com/huddleapp/huddle/backend/internal/attendance"
	"github.com/huddleapp/huddle/backend/internal/chat"
	"github.com/huddleapp/huddle/backend/internal/directory"
	"github.com/huddleapp/huddle/backend/internal/events"
)

const userIDContextKey = "huddle_user_id"

const defaultWriteTimeout = 10 * time.Second

var (
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingDirectory     = errors.New("directory dependency required")
	errMissingChatService   = errors.New("chat service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates session tokens.
type TokenManager interface {
	IssueToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP surface to the services behind it.
type Dependencies struct {
	TokenManager  TokenManager
	Directory     *directory.Service
	ChatService   *chat.Service
	Announcements *announce.Service
	Events        *events.Service
	Attendance    *attendance.Service
	Metrics       http.Handler
	Logger        *zap.Logger
	WriteTimeout  time.Duration
}

// NewHTTPHandler builds the gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Directory == nil {
		return nil, errMissingDirectory
	}
	if deps.ChatService == nil {
		return nil, errMissingChatService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	writeTimeout := deps.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:        deps.TokenManager,
		directory:     deps.Directory,
		chatService:   deps.ChatService,
		announcements: deps.Announcements,
		events:        deps.Events,
		attendance:    deps.Attendance,
		logger:        logger,
		writeTimeout:  writeTimeout,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.GET("/users", handler.handleListUsers)
	protected.POST("/users", handler.handleCreateUser)
	protected.PATCH("/users/:id", handler.handleUpdateUser)

	protected.GET("/inbox", handler.handleListInbox)
	protected.GET("/inbox/stream", handler.handleInboxStream)

	protected.POST("/chats", handler.handleStartConversation)
	protected.POST("/chats/:peer/read", handler.handleMarkRead)
	protected.POST("/chats/:peer/favorite", handler.handleToggleFavorite)
	protected.DELETE("/chats/:peer", handler.handleDeleteConversation)

	protected.GET("/conversations/:id/messages", handler.handleListMessages)
	protected.GET("/conversations/:id/stream", handler.handleMessageStream)
	protected.POST("/conversations/:id/messages", handler.handleSendMessage)
	protected.PATCH("/conversations/:id/messages/:mid", handler.handleEditMessage)
	protected.DELETE("/conversations/:id/messages/:mid", handler.handleDeleteMessage)

	protected.GET("/announcements", handler.handleListAnnouncements)
	protected.POST("/announcements", handler.handleCreateAnnouncement)
	protected.PATCH("/announcements/:id", handler.handleUpdateAnnouncement)
	protected.DELETE("/announcements/:id", handler.handleDeleteAnnouncement)

	protected.GET("/events", handler.handleListEvents)
	protected.POST("/events", handler.handleCreateEvent)
	protected.PATCH("/events/:id", handler.handleUpdateEvent)
	protected.DELETE("/events/:id", handler.handleDeleteEvent)
	protected.GET("/events/:id/comments", handler.handleListComments)
	protected.POST("/events/:id/comments", handler.handleAddComment)
	protected.GET("/events/:id/attendance", handler.handleRoster)
	protected.POST("/events/:id/attendance", handler.handleCheckIn)
	protected.GET("/me/attendance", handler.handleAttendanceHistory)

	return router, nil
}

type httpHandler struct {
	tokens        TokenManager
	directory     *directory.Service
	chatService   *chat.Service
	announcements *announce.Service
	events        *events.Service
	attendance    *attendance.Service
	logger        *zap.Logger
	writeTimeout  time.Duration
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// writeContext bounds mutation handlers so a hung storage write fails the
// request instead of never resolving.
func (h *httpHandler) writeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.writeTimeout)
}

func (h *httpHandler) currentUser(c *gin.Context) (directory.User, bool) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return directory.User{}, false
	}
	user, err := h.directory.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown account"})
		return directory.User{}, false
	}
	return user, true
}
