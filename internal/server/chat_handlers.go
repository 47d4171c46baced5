package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huddleapp/huddle/backend/internal/chat"
)

func (h *httpHandler) callerID(c *gin.Context) (chat.UserID, bool) {
	callerID, err := chat.NewUserID(c.GetString(userIDContextKey))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return callerID, true
}

type startConversationRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

func (h *httpHandler) handleStartConversation(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	var request startConversationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peer_id required"})
		return
	}
	peerID, err := chat.NewUserID(request.PeerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	conversationID, err := h.chatService.StartConversation(ctx, callerID, peerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID.String()})
}

func (h *httpHandler) handleListInbox(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	entries, err := h.chatService.ListInbox(c.Request.Context(), callerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": toInboxPayload(entries)})
}

func (h *httpHandler) handleMarkRead(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	peerID, err := chat.NewUserID(c.Param("peer"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	if err := h.chatService.MarkRead(ctx, callerID, peerID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleToggleFavorite(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	peerID, err := chat.NewUserID(c.Param("peer"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	favorite, err := h.chatService.ToggleFavorite(ctx, callerID, peerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": favorite})
}

func (h *httpHandler) handleDeleteConversation(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	peerID, err := chat.NewUserID(c.Param("peer"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	conversationID := chat.ConversationIDFor(callerID, peerID)
	if err := h.chatService.DeleteConversation(ctx, callerID, conversationID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *httpHandler) handleListMessages(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	conversationID, err := chat.ParseConversationID(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	messages, err := h.chatService.ListMessages(c.Request.Context(), callerID, conversationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": toMessagesPayload(messages)})
}

type sendMessageRequest struct {
	Text      string `json:"text" binding:"required"`
	ClientKey string `json:"client_key"`
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	conversationID, err := chat.ParseConversationID(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	var request sendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	message, err := h.chatService.SendMessage(ctx, callerID, conversationID, request.Text, request.ClientKey)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": toMessagePayload(message)})
}

type editMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *httpHandler) handleEditMessage(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	conversationID, err := chat.ParseConversationID(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	var request editMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	message, err := h.chatService.EditMessage(ctx, callerID, conversationID, c.Param("mid"), request.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": toMessagePayload(message)})
}

func (h *httpHandler) handleDeleteMessage(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	conversationID, err := chat.ParseConversationID(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	ctx, cancel := h.writeContext(c)
	defer cancel()
	if err := h.chatService.DeleteMessage(ctx, callerID, conversationID, c.Param("mid")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func setStreamHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}

// handleInboxStream pushes the caller's full chat list as a server-sent
// event on every change. Each event replaces the previous snapshot.
func (h *httpHandler) handleInboxStream(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	stream, err := h.chatService.SubscribeInbox(c.Request.Context(), callerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	setStreamHeaders(c)
	c.Stream(func(_ io.Writer) bool {
		snapshot, open := <-stream
		if !open {
			return false
		}
		c.SSEvent("inbox", gin.H{"entries": toInboxPayload(snapshot)})
		return true
	})
}

// handleMessageStream pushes the full ordered message log of one
// conversation on every change.
func (h *httpHandler) handleMessageStream(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	conversationID, err := chat.ParseConversationID(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	stream, err := h.chatService.SubscribeMessages(c.Request.Context(), callerID, conversationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	setStreamHeaders(c)
	c.Stream(func(_ io.Writer) bool {
		snapshot, open := <-stream
		if !open {
			return false
		}
		c.SSEvent("messages", gin.H{"messages": toMessagesPayload(snapshot)})
		return true
	})
}
