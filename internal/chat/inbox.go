package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errInboxMissingDatabase = errors.New("inbox index: database handle is required")

// InboxIndexConfig describes the dependencies of the chat-list index.
type InboxIndexConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// InboxIndex maintains the per-owner, per-peer summary rows rendered as the
// chat list. Writes are merge-upserts so every operation is idempotent and
// safe to re-run after a partial dual-write.
type InboxIndex struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewInboxIndex constructs the chat-list index.
func NewInboxIndex(cfg InboxIndexConfig) (*InboxIndex, error) {
	if cfg.Database == nil {
		return nil, errInboxMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &InboxIndex{db: cfg.Database, clock: clock}, nil
}

// UpsertFields carries the merge-write for one inbox entry. Nil pointers
// leave the stored column untouched on conflict; IncrementUnread turns the
// unread write into an atomic in-database increment instead of an overwrite.
type UpsertFields struct {
	PeerName        *string
	LastMessage     *string
	ConversationID  *ConversationID
	UnreadCount     *int64
	Favorite        *bool
	UpdatedAtMS     *int64
	IncrementUnread bool
}

// Upsert merge-writes the given fields into the (owner, peer) row, creating
// it when absent. The conflict clause makes the write idempotent under retry;
// the unread increment happens inside the statement, never read-modify-write.
func (i *InboxIndex) Upsert(ctx context.Context, owner, peer UserID, fields UpsertFields) error {
	now := i.clock().UTC().UnixMilli()

	row := InboxEntry{
		OwnerID:     owner.String(),
		PeerID:      peer.String(),
		UpdatedAtMS: now,
	}
	assignments := map[string]interface{}{}

	if fields.PeerName != nil {
		row.PeerName = *fields.PeerName
		assignments["peer_name"] = *fields.PeerName
	}
	if fields.LastMessage != nil {
		row.LastMessage = *fields.LastMessage
		assignments["last_message"] = *fields.LastMessage
	}
	if fields.ConversationID != nil {
		row.ConversationID = fields.ConversationID.String()
		assignments["conversation_id"] = fields.ConversationID.String()
	}
	if fields.Favorite != nil {
		row.Favorite = *fields.Favorite
		assignments["favorite"] = *fields.Favorite
	}
	if fields.UpdatedAtMS != nil {
		row.UpdatedAtMS = *fields.UpdatedAtMS
	}
	assignments["updated_at_ms"] = row.UpdatedAtMS

	switch {
	case fields.IncrementUnread:
		row.UnreadCount = 1
		assignments["unread_count"] = gorm.Expr("inbox_entries.unread_count + 1")
	case fields.UnreadCount != nil:
		row.UnreadCount = *fields.UnreadCount
		assignments["unread_count"] = *fields.UnreadCount
	}

	err := i.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "peer_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&row).Error
	if err != nil {
		return newServiceError("inbox.upsert", "write_failed", err)
	}
	return nil
}

// SetUnread overwrites the unread counter for the (owner, peer) row. Used by
// mark-as-read; missing rows report ErrEntryNotFound.
func (i *InboxIndex) SetUnread(ctx context.Context, owner, peer UserID, count int64) error {
	if count < 0 {
		count = 0
	}
	result := i.db.WithContext(ctx).Model(&InboxEntry{}).
		Where("owner_id = ? AND peer_id = ?", owner.String(), peer.String()).
		Update("unread_count", count)
	if result.Error != nil {
		return newServiceError("inbox.set_unread", "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ToggleFavorite flips the favorite flag on the (owner, peer) row.
func (i *InboxIndex) ToggleFavorite(ctx context.Context, owner, peer UserID) (bool, error) {
	entry, err := i.Get(ctx, owner, peer)
	if err != nil {
		return false, err
	}
	flipped := !entry.Favorite
	result := i.db.WithContext(ctx).Model(&InboxEntry{}).
		Where("owner_id = ? AND peer_id = ?", owner.String(), peer.String()).
		Update("favorite", flipped)
	if result.Error != nil {
		return false, newServiceError("inbox.toggle_favorite", "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, ErrEntryNotFound
	}
	return flipped, nil
}

// Remove deletes the (owner, peer) row. The peer's own row is deliberately
// untouched; removing an absent row is a no-op.
func (i *InboxIndex) Remove(ctx context.Context, owner, peer UserID) error {
	err := i.db.WithContext(ctx).
		Where("owner_id = ? AND peer_id = ?", owner.String(), peer.String()).
		Delete(&InboxEntry{}).Error
	if err != nil {
		return newServiceError("inbox.remove", "delete_failed", err)
	}
	return nil
}

// Get loads the (owner, peer) row.
func (i *InboxIndex) Get(ctx context.Context, owner, peer UserID) (InboxEntry, error) {
	var entry InboxEntry
	err := i.db.WithContext(ctx).
		Where("owner_id = ? AND peer_id = ?", owner.String(), peer.String()).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return InboxEntry{}, ErrEntryNotFound
	}
	if err != nil {
		return InboxEntry{}, newServiceError("inbox.get", "query_failed", err)
	}
	return entry, nil
}

// ListForOwner returns the owner's chat list: favorites first, then most
// recently updated, with the peer id as a deterministic tiebreak.
func (i *InboxIndex) ListForOwner(ctx context.Context, owner UserID) ([]InboxEntry, error) {
	var entries []InboxEntry
	err := i.db.WithContext(ctx).
		Where("owner_id = ?", owner.String()).
		Order("favorite DESC").
		Order("updated_at_ms DESC").
		Order("peer_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, newServiceError("inbox.list_for_owner", "query_failed", err)
	}
	return entries, nil
}
