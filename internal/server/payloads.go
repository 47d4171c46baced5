package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huddleapp/huddle/backend/internal/announce"
	"github.com/huddleapp/huddle/backend/internal/attendance"
	"github.com/huddleapp/huddle/backend/internal/chat"
	"github.com/huddleapp/huddle/backend/internal/directory"
	"github.com/huddleapp/huddle/backend/internal/events"
)

type userPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Active      bool   `json:"active"`
}

func toUserPayload(user directory.User) userPayload {
	return userPayload{
		ID:          user.UserID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role.String(),
		Active:      user.Active,
	}
}

type inboxEntryPayload struct {
	PeerID         string `json:"peer_id"`
	PeerName       string `json:"peer_name"`
	LastMessage    string `json:"last_message"`
	ConversationID string `json:"conversation_id"`
	UnreadCount    int64  `json:"unread_count"`
	Favorite       bool   `json:"favorite"`
	UpdatedAtMS    int64  `json:"updated_at_ms"`
}

func toInboxPayload(entries []chat.InboxEntry) []inboxEntryPayload {
	payload := make([]inboxEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, inboxEntryPayload{
			PeerID:         entry.PeerID,
			PeerName:       entry.PeerName,
			LastMessage:    entry.LastMessage,
			ConversationID: entry.ConversationID,
			UnreadCount:    entry.UnreadCount,
			Favorite:       entry.Favorite,
			UpdatedAtMS:    entry.UpdatedAtMS,
		})
	}
	return payload
}

type messagePayload struct {
	MessageID   string `json:"message_id"`
	AuthorID    string `json:"author_id"`
	Body        string `json:"body"`
	Seq         int64  `json:"seq"`
	CreatedAtMS int64  `json:"created_at_ms"`
	Edited      bool   `json:"edited"`
	EditedAtMS  int64  `json:"edited_at_ms,omitempty"`
}

func toMessagePayload(message chat.Message) messagePayload {
	return messagePayload{
		MessageID:   message.MessageID,
		AuthorID:    message.AuthorID,
		Body:        message.Body,
		Seq:         message.Seq,
		CreatedAtMS: message.CreatedAtMS,
		Edited:      message.Edited,
		EditedAtMS:  message.EditedAtMS,
	}
}

func toMessagesPayload(messages []chat.Message) []messagePayload {
	payload := make([]messagePayload, 0, len(messages))
	for _, message := range messages {
		payload = append(payload, toMessagePayload(message))
	}
	return payload
}

type announcementPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	AuthorID    string `json:"author_id"`
	CreatedAtMS int64  `json:"created_at_ms"`
	UpdatedAtMS int64  `json:"updated_at_ms"`
}

func toAnnouncementPayload(item announce.Announcement) announcementPayload {
	return announcementPayload{
		ID:          item.AnnouncementID,
		Title:       item.Title,
		Body:        item.Body,
		AuthorID:    item.AuthorID,
		CreatedAtMS: item.CreatedAtMS,
		UpdatedAtMS: item.UpdatedAtMS,
	}
}

type eventPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Venue       string `json:"venue"`
	StartsAtMS  int64  `json:"starts_at_ms"`
	Capacity    int64  `json:"capacity"`
	CreatedBy   string `json:"created_by"`
	CreatedAtMS int64  `json:"created_at_ms"`
}

func toEventPayload(item events.Event) eventPayload {
	return eventPayload{
		ID:          item.EventID,
		Title:       item.Title,
		Description: item.Description,
		Venue:       item.Venue,
		StartsAtMS:  item.StartsAtMS,
		Capacity:    item.Capacity,
		CreatedBy:   item.CreatedBy,
		CreatedAtMS: item.CreatedAtMS,
	}
}

type commentPayload struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	ParentID    string `json:"parent_id,omitempty"`
	AuthorID    string `json:"author_id"`
	Body        string `json:"body"`
	CreatedAtMS int64  `json:"created_at_ms"`
}

func toCommentPayload(item events.Comment) commentPayload {
	return commentPayload{
		ID:          item.CommentID,
		EventID:     item.EventID,
		ParentID:    item.ParentID,
		AuthorID:    item.AuthorID,
		Body:        item.Body,
		CreatedAtMS: item.CreatedAtMS,
	}
}

type attendancePayload struct {
	EventID       string `json:"event_id"`
	UserID        string `json:"user_id"`
	CheckedInAtMS int64  `json:"checked_in_at_ms"`
}

func toAttendancePayload(records []attendance.Record) []attendancePayload {
	payload := make([]attendancePayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, attendancePayload{
			EventID:       record.EventID,
			UserID:        record.UserID,
			CheckedInAtMS: record.CheckedInAtMS,
		})
	}
	return payload
}

// respondServiceError translates service-layer failures into HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chat.ErrAccessDenied),
		errors.Is(err, chat.ErrNotAuthor),
		errors.Is(err, announce.ErrAccessDenied),
		errors.Is(err, events.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, chat.ErrEditWindowExpired):
		status = http.StatusConflict
	case errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, chat.ErrEntryNotFound),
		errors.Is(err, announce.ErrNotFound),
		errors.Is(err, events.ErrEventNotFound),
		errors.Is(err, events.ErrCommentNotFound),
		errors.Is(err, attendance.ErrUnknownEvent),
		errors.Is(err, directory.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chat.ErrInvalidUserID),
		errors.Is(err, chat.ErrInvalidConversationID),
		errors.Is(err, chat.ErrInvalidMessageID),
		errors.Is(err, chat.ErrEmptyMessageBody),
		errors.Is(err, events.ErrParentMismatch),
		errors.Is(err, directory.ErrInvalidRole):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, directory.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, directory.ErrBadCredentials),
		errors.Is(err, directory.ErrInactiveUser):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
