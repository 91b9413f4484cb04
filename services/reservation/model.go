package reservation

import "time"

type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a cooperator's claim on one spot in a class. Rows are never
// deleted; a reservation transitions confirmed -> cancelled exactly once.
//
// The idempotency key is unique across live (confirmed) reservations system
// wide: the partial index frees the key for rebooking once the reservation is
// cancelled while keeping the cancelled row for audit.
type Reservation struct {
	ID               string     `gorm:"column:id;primaryKey"`
	ClassID          string     `gorm:"column:class_id;not null;index"`
	CooperatorID     string     `gorm:"column:cooperator_id;not null;index"`
	CooperatorUserID string     `gorm:"column:cooperator_user_id;not null"`
	IdempotencyKey   string     `gorm:"column:idempotency_key;not null;uniqueIndex:idx_reservations_idem,where:status = 'confirmed'"`
	Status           string     `gorm:"column:status;default:'confirmed';not null"`
	UserEmail        *string    `gorm:"column:user_email"`
	UserName         *string    `gorm:"column:user_name"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	CancelledAt      *time.Time `gorm:"column:cancelled_at"`
	CancellationNote *string    `gorm:"column:cancellation_note"`
}

func (Reservation) TableName() string { return "reservations" }
