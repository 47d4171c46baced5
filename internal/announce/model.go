package announce

// Announcement is one entry on the club's announcement board.
type Announcement struct {
	AnnouncementID string `gorm:"column:announcement_id;primaryKey;size:190;not null"`
	Title          string `gorm:"column:title;size:320;not null"`
	Body           string `gorm:"column:body;type:text;not null"`
	AuthorID       string `gorm:"column:author_id;size:190;not null"`
	CreatedAtMS    int64  `gorm:"column:created_at_ms;not null;index"`
	UpdatedAtMS    int64  `gorm:"column:updated_at_ms;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Announcement) TableName() string {
	return "announcements"
}
