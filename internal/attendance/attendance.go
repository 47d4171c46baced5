package attendance

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUnknownEvent indicates a check-in against an event that does not exist.
	ErrUnknownEvent = errors.New("attendance: unknown event")

	errMissingDatabase = errors.New("attendance: database handle is required")
	errMissingEvents   = errors.New("attendance: event resolver is required")
)

// Record marks one account as present at one event. The composite key makes
// repeated check-ins idempotent.
type Record struct {
	EventID       string `gorm:"column:event_id;primaryKey;size:190;not null"`
	UserID        string `gorm:"column:user_id;primaryKey;size:190;not null;index"`
	CheckedInAtMS int64  `gorm:"column:checked_in_at_ms;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Record) TableName() string {
	return "attendance_records"
}

// EventResolver answers whether an event id is known.
type EventResolver interface {
	EventExists(ctx context.Context, eventID string) (bool, error)
}

// ServiceConfig describes the dependencies of attendance tracking.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Events   EventResolver
}

// Service records event check-ins and answers roster and history queries.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	events EventResolver
}

// NewService constructs the attendance service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Events == nil {
		return nil, errMissingEvents
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, clock: clock, events: cfg.Events}, nil
}

// CheckIn records the user as present at the event. Checking in twice keeps
// the first record.
func (s *Service) CheckIn(ctx context.Context, eventID, userID string) (Record, error) {
	exists, err := s.events.EventExists(ctx, eventID)
	if err != nil {
		return Record{}, err
	}
	if !exists {
		return Record{}, ErrUnknownEvent
	}

	record := Record{
		EventID:       eventID,
		UserID:        userID,
		CheckedInAtMS: s.clock().UTC().UnixMilli(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&record).Error
	if err != nil {
		return Record{}, err
	}

	var stored Record
	if err := s.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Take(&stored).Error; err != nil {
		return Record{}, err
	}
	return stored, nil
}

// Roster returns everyone checked in to the event, earliest first.
func (s *Service) Roster(ctx context.Context, eventID string) ([]Record, error) {
	var records []Record
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("checked_in_at_ms ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// History returns the events the user attended, most recent first.
func (s *Service) History(ctx context.Context, userID string) ([]Record, error) {
	var records []Record
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("checked_in_at_ms DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
