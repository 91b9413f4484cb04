package venue

import "time"

// Venue is visible to cooperators only while both IsActive and APIEnabled
// hold.
type Venue struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;index"`
	Email       string    `gorm:"column:email"`
	Phone       string    `gorm:"column:phone"`
	Address     string    `gorm:"column:address"`
	City        string    `gorm:"column:city;index"`
	State       string    `gorm:"column:state;index"`
	Country     string    `gorm:"column:country"`
	Description string    `gorm:"column:description"`
	Website     string    `gorm:"column:website"`
	IsActive    bool      `gorm:"column:is_active;default:true;not null"`
	APIEnabled  bool      `gorm:"column:api_enabled;default:false;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Venue) TableName() string { return "venues" }

// VenueCooperator is the access grant joining a cooperator to a venue. Access
// holds iff the grant is active AND the venue is active and api-enabled; the
// predicate is re-evaluated on every check, never cached across requests.
type VenueCooperator struct {
	ID           string    `gorm:"column:id;primaryKey"`
	VenueID      string    `gorm:"column:venue_id;not null;uniqueIndex:idx_venue_cooperator"`
	CooperatorID string    `gorm:"column:cooperator_id;not null;uniqueIndex:idx_venue_cooperator"`
	IsActive     bool      `gorm:"column:is_active;default:true;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (VenueCooperator) TableName() string { return "venue_cooperators" }
