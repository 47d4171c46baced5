package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/huddleapp/huddle/backend/internal/directory"
)

var (
	// ErrEventNotFound indicates the addressed event does not exist.
	ErrEventNotFound = errors.New("events: event not found")
	// ErrCommentNotFound indicates the addressed comment does not exist.
	ErrCommentNotFound = errors.New("events: comment not found")
	// ErrAccessDenied indicates a member attempted a staff-only operation.
	ErrAccessDenied = errors.New("events: access denied")
	// ErrParentMismatch indicates a reply referencing a comment on another event.
	ErrParentMismatch = errors.New("events: parent comment belongs to another event")

	errMissingDatabase   = errors.New("events: database handle is required")
	errMissingIDProvider = errors.New("events: id provider is required")
)

// IDProvider issues identifiers for events and comments.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the event calendar.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// Service manages club events and their comment threads. Staff and admins
// manage events; any account may comment.
type Service struct {
	db    *gorm.DB
	clock func() time.Time
	ids   IDProvider
}

// NewService constructs the events service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, clock: clock, ids: cfg.IDProvider}, nil
}

func canManage(role directory.Role) bool {
	return role == directory.RoleStaff || role == directory.RoleAdmin
}

// NewEvent carries the fields required to schedule an event.
type NewEvent struct {
	Title       string
	Description string
	Venue       string
	StartsAtMS  int64
	Capacity    int64
}

// CreateEvent schedules a new event.
func (s *Service) CreateEvent(ctx context.Context, creatorID string, creatorRole directory.Role, input NewEvent) (Event, error) {
	if !canManage(creatorRole) {
		return Event{}, ErrAccessDenied
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Event{}, fmt.Errorf("events: title is required")
	}
	if input.StartsAtMS <= 0 {
		return Event{}, fmt.Errorf("events: start time is required")
	}

	id, err := s.ids.NewID()
	if err != nil {
		return Event{}, err
	}
	event := Event{
		EventID:     id,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Venue:       strings.TrimSpace(input.Venue),
		StartsAtMS:  input.StartsAtMS,
		Capacity:    input.Capacity,
		CreatedBy:   creatorID,
		CreatedAtMS: s.clock().UTC().UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return Event{}, err
	}
	return event, nil
}

// UpdateEvent replaces the mutable fields of an event.
func (s *Service) UpdateEvent(ctx context.Context, actorRole directory.Role, eventID string, input NewEvent) (Event, error) {
	if !canManage(actorRole) {
		return Event{}, ErrAccessDenied
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Event{}, fmt.Errorf("events: title is required")
	}

	result := s.db.WithContext(ctx).Model(&Event{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"title":        title,
			"description":  strings.TrimSpace(input.Description),
			"venue":        strings.TrimSpace(input.Venue),
			"starts_at_ms": input.StartsAtMS,
			"capacity":     input.Capacity,
		})
	if result.Error != nil {
		return Event{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Event{}, ErrEventNotFound
	}
	return s.GetEvent(ctx, eventID)
}

// DeleteEvent removes an event and its comment thread.
func (s *Service) DeleteEvent(ctx context.Context, actorRole directory.Role, eventID string) error {
	if !canManage(actorRole) {
		return ErrAccessDenied
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&Comment{}).Error; err != nil {
			return err
		}
		result := tx.Where("event_id = ?", eventID).Delete(&Event{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrEventNotFound
		}
		return nil
	})
}

// GetEvent loads one event.
func (s *Service) GetEvent(ctx context.Context, eventID string) (Event, error) {
	var event Event
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

// EventExists reports whether the event id is known. Used by the attendance
// module to validate check-ins.
func (s *Service) EventExists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Event{}).
		Where("event_id = ?", eventID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListEvents returns all events ordered by start time.
func (s *Service) ListEvents(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := s.db.WithContext(ctx).
		Order("starts_at_ms ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// AddComment appends a comment to an event's thread. A non-empty parentID
// threads the comment under an existing comment of the same event.
func (s *Service) AddComment(ctx context.Context, authorID, eventID, parentID, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, fmt.Errorf("events: comment body is required")
	}
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return Comment{}, err
	}
	if parentID != "" {
		var parent Comment
		err := s.db.WithContext(ctx).Where("comment_id = ?", parentID).Take(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Comment{}, ErrCommentNotFound
		}
		if err != nil {
			return Comment{}, err
		}
		if parent.EventID != eventID {
			return Comment{}, ErrParentMismatch
		}
	}

	id, err := s.ids.NewID()
	if err != nil {
		return Comment{}, err
	}
	comment := Comment{
		CommentID:   id,
		EventID:     eventID,
		ParentID:    parentID,
		AuthorID:    authorID,
		Body:        body,
		CreatedAtMS: s.clock().UTC().UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return Comment{}, err
	}
	return comment, nil
}

// ListComments returns an event's comments in creation order; clients nest
// replies by parent id.
func (s *Service) ListComments(ctx context.Context, eventID string) ([]Comment, error) {
	var comments []Comment
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at_ms ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
