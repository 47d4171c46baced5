package announce

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
	// ErrNotFound indicates the addressed announcement does not exist.
	ErrNotFound = errors.New("announce: announcement not found")
	// ErrAccessDenied indicates a member attempted a staff-only operation.
	ErrAccessDenied = errors.New("announce: access denied")

	errMissingDatabase   = errors.New("announce: database handle is required")
	errMissingIDProvider = errors.New("announce: id provider is required")
)

// IDProvider issues identifiers for announcements.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the announcement board.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// Service manages the announcement board: staff and admins write, everyone
// reads.
type Service struct {
	db    *gorm.DB
	clock func() time.Time
	ids   IDProvider
}

// NewService constructs the announcement service.
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

func canPublish(role directory.Role) bool {
	return role == directory.RoleStaff || role == directory.RoleAdmin
}

// Create publishes a new announcement.
func (s *Service) Create(ctx context.Context, authorID string, authorRole directory.Role, title, body string) (Announcement, error) {
	if !canPublish(authorRole) {
		return Announcement{}, ErrAccessDenied
	}
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return Announcement{}, fmt.Errorf("announce: title and body are required")
	}

	id, err := s.ids.NewID()
	if err != nil {
		return Announcement{}, err
	}
	now := s.clock().UTC().UnixMilli()
	announcement := Announcement{
		AnnouncementID: id,
		Title:          title,
		Body:           body,
		AuthorID:       authorID,
		CreatedAtMS:    now,
		UpdatedAtMS:    now,
	}
	if err := s.db.WithContext(ctx).Create(&announcement).Error; err != nil {
		return Announcement{}, err
	}
	return announcement, nil
}

// Update replaces the title and body of an existing announcement.
func (s *Service) Update(ctx context.Context, actorRole directory.Role, announcementID, title, body string) (Announcement, error) {
	if !canPublish(actorRole) {
		return Announcement{}, ErrAccessDenied
	}
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return Announcement{}, fmt.Errorf("announce: title and body are required")
	}

	result := s.db.WithContext(ctx).Model(&Announcement{}).
		Where("announcement_id = ?", announcementID).
		Updates(map[string]interface{}{
			"title":         title,
			"body":          body,
			"updated_at_ms": s.clock().UTC().UnixMilli(),
		})
	if result.Error != nil {
		return Announcement{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Announcement{}, ErrNotFound
	}

	var stored Announcement
	if err := s.db.WithContext(ctx).
		Where("announcement_id = ?", announcementID).
		Take(&stored).Error; err != nil {
		return Announcement{}, err
	}
	return stored, nil
}

// Delete removes an announcement.
func (s *Service) Delete(ctx context.Context, actorRole directory.Role, announcementID string) error {
	if !canPublish(actorRole) {
		return ErrAccessDenied
	}
	result := s.db.WithContext(ctx).
		Where("announcement_id = ?", announcementID).
		Delete(&Announcement{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all announcements, newest first.
func (s *Service) List(ctx context.Context) ([]Announcement, error) {
	var announcements []Announcement
	if err := s.db.WithContext(ctx).
		Order("created_at_ms DESC").
		Find(&announcements).Error; err != nil {
		return nil, err
	}
	return announcements, nil
}
