package class

import "time"

// Class is a bookable offering at a venue. SpotsAvailable is mutated only
// inside the reservation engine's unit of work, paired with the reservation
// row; `0 <= spots_available <= spots_total` holds at all times.
type Class struct {
	ID              string    `gorm:"column:id;primaryKey"`
	VenueID         string    `gorm:"column:venue_id;not null;index"`
	Name            string    `gorm:"column:name;not null"`
	Description     string    `gorm:"column:description"`
	InstructorName  string    `gorm:"column:instructor_name"`
	StartTime       time.Time `gorm:"column:start_time;not null;index"`
	EndTime         time.Time `gorm:"column:end_time;not null"`
	SpotsTotal      int       `gorm:"column:spots_total;not null"`
	SpotsAvailable  int       `gorm:"column:spots_available;not null"`
	Price           float64   `gorm:"column:price"`
	DifficultyLevel string    `gorm:"column:difficulty_level"`
	IsActive        bool      `gorm:"column:is_active;default:true;not null"`
	IsCancelled     bool      `gorm:"column:is_cancelled;default:false;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Class) TableName() string { return "classes" }
