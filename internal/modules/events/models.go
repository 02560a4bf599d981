package events

import "time"

type Event struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	Title       string    `gorm:"type:varchar(100);not null;index:ix_events_title"`
	Description string    `gorm:"type:varchar(500)"`
	Date        time.Time `gorm:"type:datetime(3);not null;index:ix_events_date"`
	Location    string    `gorm:"type:varchar(255);not null"`
	Price       int       `gorm:"not null;default:0"` // whole KES; 0 means unpriced

	PosterKey *string `gorm:"type:varchar(255)"`
	PosterURL *string `gorm:"type:varchar(512)"`

	CreatedBy string    `gorm:"type:char(36);not null;index:ix_events_created_by"`
	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Event) TableName() string { return "events" }
