package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// EditWindow is the period after creation during which the author may still
// modify a message's text.
const EditWindow = time.Hour

// purgeBatchSize bounds how many message ids a single delete statement
// addresses during a purge.
const purgeBatchSize = 500

var (
	errStoreMissingDatabase   = errors.New("conversation store: database handle is required")
	errStoreMissingIDProvider = errors.New("conversation store: id provider is required")
)

// ConversationStoreConfig describes the dependencies of the message log.
type ConversationStoreConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// ConversationStore owns the durable, ordered message log per conversation.
// Appends are sequenced inside a transaction so ordering survives equal
// wall-clock timestamps; purges run as one batched transaction.
type ConversationStore struct {
	db    *gorm.DB
	clock func() time.Time
	ids   IDProvider
}

// NewConversationStore constructs the message log store.
func NewConversationStore(cfg ConversationStoreConfig) (*ConversationStore, error) {
	if cfg.Database == nil {
		return nil, errStoreMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errStoreMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ConversationStore{db: cfg.Database, clock: clock, ids: cfg.IDProvider}, nil
}

// Append inserts a message with a server-assigned timestamp and the next
// sequence number for the conversation. The client key deduplicates retried
// sends: an append re-run with the same key returns the stored message
// instead of creating a second one.
func (s *ConversationStore) Append(ctx context.Context, conversationID ConversationID, authorID UserID, body, clientKey string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessageBody
	}
	if clientKey == "" {
		generated, err := s.ids.NewID()
		if err != nil {
			return Message{}, newServiceError("chat.append", "id_generation_failed", err)
		}
		clientKey = generated
	}

	var stored Message
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Message
		err := tx.Where("conversation_id = ? AND client_key = ?", conversationID.String(), clientKey).
			Take(&existing).Error
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var last Message
		nextSeq := int64(1)
		createdAt := s.clock().UTC().UnixMilli()
		err = tx.Where("conversation_id = ?", conversationID.String()).
			Order("seq DESC").
			Take(&last).Error
		if err == nil {
			nextSeq = last.Seq + 1
			if createdAt <= last.CreatedAtMS {
				createdAt = last.CreatedAtMS + 1
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		messageID, err := s.ids.NewID()
		if err != nil {
			return fmt.Errorf("message id generation failed: %w", err)
		}

		stored = Message{
			ConversationID: conversationID.String(),
			MessageID:      messageID,
			Seq:            nextSeq,
			AuthorID:       authorID.String(),
			Body:           body,
			CreatedAtMS:    createdAt,
			ClientKey:      clientKey,
		}
		return tx.Create(&stored).Error
	})
	if txErr != nil {
		return Message{}, newServiceError("chat.append", "insert_failed", txErr)
	}
	return stored, nil
}

// ListOrdered returns the conversation's messages ascending by sequence.
func (s *ConversationStore) ListOrdered(ctx context.Context, conversationID ConversationID) ([]Message, error) {
	var messages []Message
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Order("seq ASC").
		Find(&messages).Error; err != nil {
		return nil, newServiceError("chat.list_ordered", "query_failed", err)
	}
	return messages, nil
}

// Latest returns the most recent message of the conversation, or false when
// the log is empty.
func (s *ConversationStore) Latest(ctx context.Context, conversationID ConversationID) (Message, bool, error) {
	var message Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Order("seq DESC").
		Take(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, newServiceError("chat.latest", "query_failed", err)
	}
	return message, true, nil
}

// Edit replaces a message's text. Only the author may edit, and only while
// the edit window is open; the author predicate is repeated in the update
// statement so the check holds at the storage boundary too.
func (s *ConversationStore) Edit(ctx context.Context, conversationID ConversationID, messageID string, editorID UserID, newBody string) (Message, error) {
	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return Message{}, ErrEmptyMessageBody
	}

	message, err := s.get(ctx, conversationID, messageID)
	if err != nil {
		return Message{}, err
	}
	if message.AuthorID != editorID.String() {
		return Message{}, ErrNotAuthor
	}
	now := s.clock().UTC()
	if now.Sub(time.UnixMilli(message.CreatedAtMS)) >= EditWindow {
		return Message{}, ErrEditWindowExpired
	}

	result := s.db.WithContext(ctx).Model(&Message{}).
		Where("conversation_id = ? AND message_id = ? AND author_id = ?",
			conversationID.String(), messageID, editorID.String()).
		Updates(map[string]interface{}{
			"body":         newBody,
			"edited":       true,
			"edited_at_ms": now.UnixMilli(),
		})
	if result.Error != nil {
		return Message{}, newServiceError("chat.edit", "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return Message{}, ErrMessageNotFound
	}

	message.Body = newBody
	message.Edited = true
	message.EditedAtMS = now.UnixMilli()
	return message, nil
}

// Delete removes a single message. Only the author may delete; the predicate
// is enforced in the delete statement itself.
func (s *ConversationStore) Delete(ctx context.Context, conversationID ConversationID, messageID string, callerID UserID) error {
	message, err := s.get(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if message.AuthorID != callerID.String() {
		return ErrNotAuthor
	}

	result := s.db.WithContext(ctx).
		Where("conversation_id = ? AND message_id = ? AND author_id = ?",
			conversationID.String(), messageID, callerID.String()).
		Delete(&Message{})
	if result.Error != nil {
		return newServiceError("chat.delete", "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Purge removes every message in the conversation as one transaction, batched
// over message ids. Purging an empty log is a no-op, which makes retries of an
// interrupted purge safe.
func (s *ConversationStore) Purge(ctx context.Context, conversationID ConversationID) (int64, error) {
	var removed int64
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			var ids []string
			if err := tx.Model(&Message{}).
				Where("conversation_id = ?", conversationID.String()).
				Order("seq ASC").
				Limit(purgeBatchSize).
				Pluck("message_id", &ids).Error; err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}
			result := tx.Where("conversation_id = ? AND message_id IN ?", conversationID.String(), ids).
				Delete(&Message{})
			if result.Error != nil {
				return result.Error
			}
			removed += result.RowsAffected
			if len(ids) < purgeBatchSize {
				return nil
			}
		}
	})
	if txErr != nil {
		return removed, newServiceError("chat.purge", "delete_failed", txErr)
	}
	return removed, nil
}

func (s *ConversationStore) get(ctx context.Context, conversationID ConversationID, messageID string) (Message, error) {
	var message Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND message_id = ?", conversationID.String(), messageID).
		Take(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Message{}, ErrMessageNotFound
	}
	if err != nil {
		return Message{}, newServiceError("chat.get", "query_failed", err)
	}
	return message, nil
}
