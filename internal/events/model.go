package events

// Event is one scheduled club activity.
type Event struct {
	EventID     string `gorm:"column:event_id;primaryKey;size:190;not null"`
	Title       string `gorm:"column:title;size:320;not null"`
	Description string `gorm:"column:description;type:text;not null;default:''"`
	Venue       string `gorm:"column:venue;size:320;not null;default:''"`
	StartsAtMS  int64  `gorm:"column:starts_at_ms;not null;index"`
	Capacity    int64  `gorm:"column:capacity;not null;default:0"`
	CreatedBy   string `gorm:"column:created_by;size:190;not null"`
	CreatedAtMS int64  `gorm:"column:created_at_ms;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Event) TableName() string {
	return "events"
}

// Comment is one entry in an event's discussion thread. Replies reference a
// parent comment id; top-level comments carry an empty parent.
type Comment struct {
	CommentID   string `gorm:"column:comment_id;primaryKey;size:190;not null"`
	EventID     string `gorm:"column:event_id;size:190;not null;index:idx_comments_event_time,priority:1"`
	ParentID    string `gorm:"column:parent_id;size:190;not null;default:''"`
	AuthorID    string `gorm:"column:author_id;size:190;not null"`
	Body        string `gorm:"column:body;type:text;not null"`
	CreatedAtMS int64  `gorm:"column:created_at_ms;not null;index:idx_comments_event_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "event_comments"
}
