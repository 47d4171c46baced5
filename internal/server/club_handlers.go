package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huddleapp/huddle/backend/internal/directory"
	"github.com/huddleapp/huddle/backend/internal/events"
)

func (h *httpHandler) handleListAnnouncements(c *gin.Context) {
	items, err := h.announcements.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload := make([]announcementPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, toAnnouncementPayload(item))
	}
	c.JSON(http.StatusOK, gin.H{"announcements": payload})
}

type announcementRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

func (h *httpHandler) handleCreateAnnouncement(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request announcementRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and body required"})
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	item, err := h.announcements.Create(ctx, actor.UserID, actor.Role, request.Title, request.Body)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"announcement": toAnnouncementPayload(item)})
}

func (h *httpHandler) handleUpdateAnnouncement(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request announcementRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and body required"})
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	item, err := h.announcements.Update(ctx, actor.Role, c.Param("id"), request.Title, request.Body)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcement": toAnnouncementPayload(item)})
}

func (h *httpHandler) handleDeleteAnnouncement(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	if err := h.announcements.Delete(ctx, actor.Role, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *httpHandler) handleListEvents(c *gin.Context) {
	items, err := h.events.ListEvents(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload := make([]eventPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, toEventPayload(item))
	}
	c.JSON(http.StatusOK, gin.H{"events": payload})
}

type eventRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Venue       string `json:"venue"`
	StartsAtMS  int64  `json:"starts_at_ms" binding:"required"`
	Capacity    int64  `json:"capacity"`
}

func (h *httpHandler) handleCreateEvent(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request eventRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and starts_at_ms required"})
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	item, err := h.events.CreateEvent(ctx, actor.UserID, actor.Role, events.NewEvent{
		Title:       request.Title,
		Description: request.Description,
		Venue:       request.Venue,
		StartsAtMS:  request.StartsAtMS,
		Capacity:    request.Capacity,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": toEventPayload(item)})
}

func (h *httpHandler) handleUpdateEvent(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request eventRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and starts_at_ms required"})
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	item, err := h.events.UpdateEvent(ctx, actor.Role, c.Param("id"), events.NewEvent{
		Title:       request.Title,
		Description: request.Description,
		Venue:       request.Venue,
		StartsAtMS:  request.StartsAtMS,
		Capacity:    request.Capacity,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": toEventPayload(item)})
}

func (h *httpHandler) handleDeleteEvent(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	if err := h.events.DeleteEvent(ctx, actor.Role, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	items, err := h.events.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload := make([]commentPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, toCommentPayload(item))
	}
	c.JSON(http.StatusOK, gin.H{"comments": payload})
}

type commentRequest struct {
	Body     string `json:"body" binding:"required"`
	ParentID string `json:"parent_id"`
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	callerID := c.GetString(userIDContextKey)
	var request commentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body required"})
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	item, err := h.events.AddComment(ctx, callerID, c.Param("id"), request.ParentID, request.Body)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": toCommentPayload(item)})
}

func (h *httpHandler) handleCheckIn(c *gin.Context) {
	callerID := c.GetString(userIDContextKey)
	ctx, cancel := h.writeContext(c)
	defer cancel()
	record, err := h.attendance.CheckIn(ctx, c.Param("id"), callerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": attendancePayload{
		EventID:       record.EventID,
		UserID:        record.UserID,
		CheckedInAtMS: record.CheckedInAtMS,
	}})
}

func (h *httpHandler) handleRoster(c *gin.Context) {
	actor, ok := h.currentUser(c)
	if !ok {
		return
	}
	if actor.Role == directory.RoleMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return
	}
	records, err := h.attendance.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": toAttendancePayload(records)})
}

func (h *httpHandler) handleAttendanceHistory(c *gin.Context) {
	callerID := c.GetString(userIDContextKey)
	records, err := h.attendance.History(c.Request.Context(), callerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": toAttendancePayload(records)})
}
