package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/huddleapp/huddle/backend/internal/directory"
	"github.com/huddleapp/huddle/backend/internal/metrics"
)

const (
	// PreviewStartConversation seeds both chat lists when a conversation is
	// created before any message exists.
	PreviewStartConversation = "Tap to start conversation"
	// PreviewNoMessages replaces the preview when the log empties out.
	PreviewNoMessages = "No messages yet"

	fallbackDisplayName = "Unknown User"
)

var (
	errMissingDatabase  = errors.New("chat: database handle is required")
	errMissingDirectory = errors.New("chat: directory is required")
	noOpLogger          = zap.NewNop()
)

// Directory resolves display names and roles for chat participants. The chat
// core treats identity as an external collaborator and only needs lookups.
type Directory interface {
	GetUser(ctx context.Context, userID string) (directory.User, error)
}

// ServiceConfig describes the dependencies of the sync coordinator.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Directory  Directory
	Logger     *zap.Logger
	Metrics    *metrics.ChatMetrics
}

// Service coordinates the conversation log and the two participants' inbox
// entries. No transaction spans the dual writes; consistency comes from the
// fixed upsert order plus idempotent merge semantics, so any step can be
// retried after a partial failure.
type Service struct {
	store   *ConversationStore
	inbox   *InboxIndex
	dir     Directory
	watch   *notifier
	clock   func() time.Time
	logger  *zap.Logger
	metrics *metrics.ChatMetrics
}

// NewService constructs the chat coordinator.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Directory == nil {
		return nil, errMissingDirectory
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	store, err := NewConversationStore(ConversationStoreConfig{
		Database:   cfg.Database,
		Clock:      clock,
		IDProvider: ids,
	})
	if err != nil {
		return nil, err
	}
	inbox, err := NewInboxIndex(InboxIndexConfig{Database: cfg.Database, Clock: clock})
	if err != nil {
		return nil, err
	}

	return &Service{
		store:   store,
		inbox:   inbox,
		dir:     cfg.Directory,
		watch:   newNotifier(),
		clock:   clock,
		logger:  logger,
		metrics: cfg.Metrics,
	}, nil
}

// Store exposes the conversation log for read paths.
func (s *Service) Store() *ConversationStore {
	return s.store
}

// Inbox exposes the chat-list index for read paths.
func (s *Service) Inbox() *InboxIndex {
	return s.inbox
}

// StartConversation validates the role policy, then seeds both participants'
// inbox entries with the same conversation id. The two upserts are not
// transactional: if the second fails, re-running the operation repairs the
// missing side because the upserts merge rather than create.
func (s *Service) StartConversation(ctx context.Context, initiatorID, targetID UserID) (ConversationID, error) {
	if initiatorID == targetID {
		return "", fmt.Errorf("%w: cannot start a conversation with yourself", ErrAccessDenied)
	}

	initiator, err := s.dir.GetUser(ctx, initiatorID.String())
	if err != nil {
		return "", newServiceError("chat.start_conversation", "initiator_lookup_failed", err)
	}
	target, err := s.dir.GetUser(ctx, targetID.String())
	if err != nil {
		return "", newServiceError("chat.start_conversation", "target_lookup_failed", err)
	}
	if !CanMessage(initiator.Role, target.Role) {
		return "", fmt.Errorf("%w: %s may not message %s", ErrAccessDenied, initiator.Role, target.Role)
	}

	conversationID := ConversationIDFor(initiatorID, targetID)
	now := s.clock().UTC().UnixMilli()
	preview := PreviewStartConversation
	zero := int64(0)
	notFavorite := false

	if err := s.inbox.Upsert(ctx, initiatorID, targetID, UpsertFields{
		PeerName:       &target.DisplayName,
		LastMessage:    &preview,
		ConversationID: &conversationID,
		UnreadCount:    &zero,
		Favorite:       &notFavorite,
		UpdatedAtMS:    &now,
	}); err != nil {
		return "", err
	}
	if err := s.inbox.Upsert(ctx, targetID, initiatorID, UpsertFields{
		PeerName:       &initiator.DisplayName,
		LastMessage:    &preview,
		ConversationID: &conversationID,
		UnreadCount:    &zero,
		Favorite:       &notFavorite,
		UpdatedAtMS:    &now,
	}); err != nil {
		s.metrics.FanoutFailed()
		s.logError("chat.start_conversation", "target_upsert_failed", err,
			zap.String("conversation_id", conversationID.String()))
		return "", err
	}

	s.notifyInbox(initiatorID, targetID)
	return conversationID, nil
}

// SendMessage appends to the log, then fans the summary out to both chat
// lists: the sender's unread stays zero, the peer's is incremented atomically
// inside the upsert statement. The client key, when supplied, makes a retried
// send return the already-stored message.
func (s *Service) SendMessage(ctx context.Context, senderID UserID, conversationID ConversationID, text, clientKey string) (Message, error) {
	peerID, ok := conversationID.PeerOf(senderID)
	if !ok {
		return Message{}, fmt.Errorf("%w: not a participant", ErrAccessDenied)
	}

	message, err := s.store.Append(ctx, conversationID, senderID, text, clientKey)
	if err != nil {
		return Message{}, err
	}
	s.metrics.Sent()

	senderName := s.displayName(ctx, senderID)
	peerName := s.displayName(ctx, peerID)
	now := message.CreatedAtMS
	zero := int64(0)

	if err := s.inbox.Upsert(ctx, senderID, peerID, UpsertFields{
		PeerName:       &peerName,
		LastMessage:    &message.Body,
		ConversationID: &conversationID,
		UnreadCount:    &zero,
		UpdatedAtMS:    &now,
	}); err != nil {
		s.metrics.FanoutFailed()
		s.logError("chat.send_message", "sender_upsert_failed", err,
			zap.String("conversation_id", conversationID.String()))
		return message, err
	}
	if err := s.inbox.Upsert(ctx, peerID, senderID, UpsertFields{
		PeerName:        &senderName,
		LastMessage:     &message.Body,
		ConversationID:  &conversationID,
		UpdatedAtMS:     &now,
		IncrementUnread: true,
	}); err != nil {
		s.metrics.FanoutFailed()
		s.logError("chat.send_message", "peer_upsert_failed", err,
			zap.String("conversation_id", conversationID.String()))
		return message, err
	}

	s.notifyConversation(conversationID)
	s.notifyInbox(senderID, peerID)
	return message, nil
}

// MarkRead zeroes the owner's unread counter for the peer. Entering a
// conversation triggers this; a concurrent incoming send wins or loses the
// row by last write, which matches the documented semantics.
func (s *Service) MarkRead(ctx context.Context, ownerID, peerID UserID) error {
	err := s.inbox.SetUnread(ctx, ownerID, peerID, 0)
	if errors.Is(err, ErrEntryNotFound) {
		// Nothing to read yet; treat as settled.
		return nil
	}
	if err != nil {
		return err
	}
	s.notifyInbox(ownerID)
	return nil
}

// EditMessage applies a window-gated, author-only edit, then repairs both
// inbox previews when the edited message is the conversation's latest.
func (s *Service) EditMessage(ctx context.Context, editorID UserID, conversationID ConversationID, messageID, newText string) (Message, error) {
	if _, ok := conversationID.PeerOf(editorID); !ok {
		return Message{}, fmt.Errorf("%w: not a participant", ErrAccessDenied)
	}

	message, err := s.store.Edit(ctx, conversationID, messageID, editorID, newText)
	if err != nil {
		return Message{}, err
	}
	s.metrics.Edited()

	if err := s.repairPreviews(ctx, conversationID, messageID); err != nil {
		s.logError("chat.edit_message", "preview_repair_failed", err,
			zap.String("conversation_id", conversationID.String()))
	}

	s.notifyConversation(conversationID)
	first, second := conversationID.Participants()
	s.notifyInbox(first, second)
	return message, nil
}

// DeleteMessage removes one author-owned message and repairs both inbox
// previews when the removed message was the latest.
func (s *Service) DeleteMessage(ctx context.Context, callerID UserID, conversationID ConversationID, messageID string) error {
	if _, ok := conversationID.PeerOf(callerID); !ok {
		return fmt.Errorf("%w: not a participant", ErrAccessDenied)
	}

	latest, hasLatest, err := s.store.Latest(ctx, conversationID)
	if err != nil {
		return err
	}
	wasLatest := hasLatest && latest.MessageID == messageID

	if err := s.store.Delete(ctx, conversationID, messageID, callerID); err != nil {
		return err
	}
	s.metrics.Deleted()

	if wasLatest {
		if err := s.repairPreviews(ctx, conversationID, ""); err != nil {
			s.logError("chat.delete_message", "preview_repair_failed", err,
				zap.String("conversation_id", conversationID.String()))
		}
	}

	s.notifyConversation(conversationID)
	first, second := conversationID.Participants()
	s.notifyInbox(first, second)
	return nil
}

// DeleteConversation purges the message log in bulk and removes only the
// owner's inbox entry. The peer keeps an entry pointing at the now-empty
// conversation id; their next send recreates the log because the id is
// deterministic and stateless.
func (s *Service) DeleteConversation(ctx context.Context, ownerID UserID, conversationID ConversationID) error {
	peerID, ok := conversationID.PeerOf(ownerID)
	if !ok {
		return fmt.Errorf("%w: not a participant", ErrAccessDenied)
	}

	if _, err := s.store.Purge(ctx, conversationID); err != nil {
		return err
	}
	s.metrics.Purged()

	if err := s.inbox.Remove(ctx, ownerID, peerID); err != nil {
		return err
	}

	s.notifyConversation(conversationID)
	s.notifyInbox(ownerID)
	return nil
}

// ToggleFavorite flips the owner's favorite flag for the peer. Purely local
// to the owner's chat list; no peer fan-out.
func (s *Service) ToggleFavorite(ctx context.Context, ownerID, peerID UserID) (bool, error) {
	favorite, err := s.inbox.ToggleFavorite(ctx, ownerID, peerID)
	if err != nil {
		return false, err
	}
	s.notifyInbox(ownerID)
	return favorite, nil
}

// ListInbox returns the owner's chat list, favorites first then recency.
func (s *Service) ListInbox(ctx context.Context, ownerID UserID) ([]InboxEntry, error) {
	return s.inbox.ListForOwner(ctx, ownerID)
}

// ListMessages returns the ordered log for a conversation the caller
// participates in.
func (s *Service) ListMessages(ctx context.Context, callerID UserID, conversationID ConversationID) ([]Message, error) {
	if _, ok := conversationID.PeerOf(callerID); !ok {
		return nil, fmt.Errorf("%w: not a participant", ErrAccessDenied)
	}
	return s.store.ListOrdered(ctx, conversationID)
}

// repairPreviews recomputes the derived last-message preview on both sides
// after an edit or delete touched the latest message. editedID limits the
// repair to the case where the latest message is the edited one; pass empty
// to repair unconditionally (delete path).
func (s *Service) repairPreviews(ctx context.Context, conversationID ConversationID, editedID string) error {
	latest, hasLatest, err := s.store.Latest(ctx, conversationID)
	if err != nil {
		return err
	}
	if editedID != "" && (!hasLatest || latest.MessageID != editedID) {
		return nil
	}

	preview := PreviewNoMessages
	if hasLatest {
		preview = latest.Body
	}
	now := s.clock().UTC().UnixMilli()

	first, second := conversationID.Participants()
	for _, pair := range [][2]UserID{{first, second}, {second, first}} {
		owner, peer := pair[0], pair[1]
		if _, err := s.inbox.Get(ctx, owner, peer); errors.Is(err, ErrEntryNotFound) {
			// Owner deleted the conversation locally; nothing to repair.
			continue
		} else if err != nil {
			return err
		}
		if err := s.inbox.Upsert(ctx, owner, peer, UpsertFields{
			LastMessage: &preview,
			UpdatedAtMS: &now,
		}); err != nil {
			return err
		}
	}
	s.metrics.PreviewRepaired()
	return nil
}

func (s *Service) displayName(ctx context.Context, userID UserID) string {
	user, err := s.dir.GetUser(ctx, userID.String())
	if err != nil || user.DisplayName == "" {
		s.logger.Warn("display name lookup failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		return fallbackDisplayName
	}
	return user.DisplayName
}

func (s *Service) notifyInbox(owners ...UserID) {
	for _, owner := range owners {
		s.watch.notify(topicInboxPrefix + owner.String())
	}
}

func (s *Service) notifyConversation(conversationID ConversationID) {
	s.watch.notify(topicConversationPrefix + conversationID.String())
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("chat service error", attrs...)
}
