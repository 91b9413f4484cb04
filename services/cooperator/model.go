package cooperator

import "time"

// Cooperator is an external tenant consuming the partner API. It owns API
// credentials and is referenced by venue grants and reservations.
type Cooperator struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Email       string    `gorm:"column:email;not null"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active;default:true;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Cooperator) TableName() string { return "cooperators" }

// Identity is the resolved per-request identity value handed to every
// downstream call once authentication succeeds. It is passed explicitly, never
// stashed in shared request state.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Cooperator) Identity() Identity {
	return Identity{ID: c.ID, Name: c.Name, Email: c.Email}
}
