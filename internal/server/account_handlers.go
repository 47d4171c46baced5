package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddleapp/huddle/backend/internal/directory"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}
	user, err := h.directory.Authenticate(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), user.UserID)
	if err != nil {
		h.logger.Error("token issuance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"user":         toUserPayload(user),
	})
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	viewer, ok := h.currentUser(c)
	if !ok {
		return
	}
	users, err := h.directory.ListVisibleTo(c.Request.Context(), viewer.UserID, viewer.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload := make([]userPayload, 0, len(users))
	for _, user := range users {
		payload = append(payload, toUserPayload(user))
	}
	c.JSON(http.StatusOK, gin.H{"users": payload})
}

type createUserRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Role        string `json:"role" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

func (h *httpHandler) handleCreateUser(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	if actor.Role != directory.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}
	var request createUserRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account payload"})
		return
	}
	role, err := directory.ParseRole(request.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	user, err := h.directory.CreateUser(ctx, directory.NewUser{
		UserID:      request.UserID,
		Email:       request.Email,
		DisplayName: request.DisplayName,
		Role:        role,
		Password:    request.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": toUserPayload(user)})
}

type updateUserRequest struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	Active      *bool   `json:"active"`
}

func (h *httpHandler) handleUpdateUser(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	if actor.Role != directory.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}
	var request updateUserRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update payload"})
		return
	}
	update := directory.UserUpdate{
		DisplayName: request.DisplayName,
		Active:      request.Active,
	}
	if request.Role != nil {
		role, err := directory.ParseRole(*request.Role)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		update.Role = &role
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	user, err := h.directory.UpdateUser(ctx, c.Param("id"), update)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserPayload(user)})
}
