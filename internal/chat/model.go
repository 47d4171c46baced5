package chat

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxIdentifierLength = 190
	conversationIDJoin  = "_"
)

var (
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("chat: invalid user id")
	// ErrInvalidConversationID indicates that a conversation identifier is malformed.
	ErrInvalidConversationID = errors.New("chat: invalid conversation id")
	// ErrInvalidMessageID indicates that a message identifier is empty or exceeds storage bounds.
	ErrInvalidMessageID = errors.New("chat: invalid message id")
	// ErrEmptyMessageBody indicates that a message body contains no text.
	ErrEmptyMessageBody = errors.New("chat: empty message body")
)

// UserID represents a validated participant identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	if strings.Contains(trimmed, conversationIDJoin) {
		return "", fmt.Errorf("%w: contains reserved separator", ErrInvalidUserID)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// ConversationID addresses the message thread between exactly two participants.
// It is a deterministic function of the unordered pair: the two ids sorted
// lexicographically and joined with a separator, so both participants always
// derive the same value.
type ConversationID string

// ConversationIDFor computes the canonical identifier for the pair (a, b).
func ConversationIDFor(a, b UserID) ConversationID {
	first, second := a.String(), b.String()
	if second < first {
		first, second = second, first
	}
	return ConversationID(first + conversationIDJoin + second)
}

// ParseConversationID validates a raw conversation identifier.
func ParseConversationID(rawInput string) (ConversationID, error) {
	trimmed := strings.TrimSpace(rawInput)
	segments := strings.SplitN(trimmed, conversationIDJoin, 2)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidConversationID, rawInput)
	}
	if segments[0] > segments[1] {
		return "", fmt.Errorf("%w: participants out of order", ErrInvalidConversationID)
	}
	return ConversationID(trimmed), nil
}

// Participants returns the two participant identifiers encoded in the id.
func (id ConversationID) Participants() (UserID, UserID) {
	segments := strings.SplitN(string(id), conversationIDJoin, 2)
	if len(segments) != 2 {
		return "", ""
	}
	return UserID(segments[0]), UserID(segments[1])
}

// PeerOf returns the other participant of the conversation, or false when the
// given user is not a participant.
func (id ConversationID) PeerOf(user UserID) (UserID, bool) {
	first, second := id.Participants()
	switch user {
	case first:
		return second, true
	case second:
		return first, true
	default:
		return "", false
	}
}

// String returns the underlying string identifier.
func (id ConversationID) String() string {
	return string(id)
}

// Message models one entry in a conversation's durable log. Sequence numbers
// are assigned by the store and strictly increase within a conversation.
type Message struct {
	ConversationID string `gorm:"column:conversation_id;primaryKey;size:384;not null;uniqueIndex:ux_messages_conv_key,priority:1"`
	MessageID      string `gorm:"column:message_id;primaryKey;size:190;not null"`
	Seq            int64  `gorm:"column:seq;not null;index:idx_messages_conv_seq,priority:2"`
	AuthorID       string `gorm:"column:author_id;size:190;not null"`
	Body           string `gorm:"column:body;type:text;not null"`
	CreatedAtMS    int64  `gorm:"column:created_at_ms;not null"`
	Edited         bool   `gorm:"column:edited;not null;default:false"`
	EditedAtMS     int64  `gorm:"column:edited_at_ms;not null;default:0"`
	ClientKey      string `gorm:"column:client_key;size:190;not null;uniqueIndex:ux_messages_conv_key,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "chat_messages"
}

// InboxEntry is one user's summary view of one conversation: the row rendered
// in the chat list. The two entries for a conversation are independently
// owned and independently written; convergence comes from the coordinator's
// upsert protocol, not from a transaction spanning both.
type InboxEntry struct {
	OwnerID        string `gorm:"column:owner_id;primaryKey;size:190;not null;index:idx_inbox_owner_updated,priority:1"`
	PeerID         string `gorm:"column:peer_id;primaryKey;size:190;not null"`
	PeerName       string `gorm:"column:peer_name;size:320;not null;default:''"`
	LastMessage    string `gorm:"column:last_message;type:text;not null;default:''"`
	ConversationID string `gorm:"column:conversation_id;size:384;not null"`
	UnreadCount    int64  `gorm:"column:unread_count;not null;default:0"`
	Favorite       bool   `gorm:"column:favorite;not null;default:false"`
	UpdatedAtMS    int64  `gorm:"column:updated_at_ms;not null;index:idx_inbox_owner_updated,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (InboxEntry) TableName() string {
	return "inbox_entries"
}
