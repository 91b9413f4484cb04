package httpapi

import (
	"time"

	"studiobook/services/class"
	"studiobook/services/reservation"
	"studiobook/services/venue"
)

type venueResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Country     string    `json:"country,omitempty"`
	Description string    `json:"description,omitempty"`
	Website     string    `json:"website,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toVenueResponse(v *venue.Venue) venueResponse {
	return venueResponse{
		ID:          v.ID,
		Name:        v.Name,
		Email:       v.Email,
		Phone:       v.Phone,
		Address:     v.Address,
		City:        v.City,
		State:       v.State,
		Country:     v.Country,
		Description: v.Description,
		Website:     v.Website,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

type classResponse struct {
	ID              string    `json:"id"`
	VenueID         string    `json:"venueId"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	InstructorName  string    `json:"instructorName,omitempty"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	SpotsTotal      int       `json:"spotsTotal"`
	SpotsAvailable  int       `json:"spotsAvailable"`
	Price           float64   `json:"price"`
	DifficultyLevel string    `json:"difficultyLevel,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toClassResponse(c *class.Class) classResponse {
	return classResponse{
		ID:              c.ID,
		VenueID:         c.VenueID,
		Name:            c.Name,
		Description:     c.Description,
		InstructorName:  c.InstructorName,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		SpotsTotal:      c.SpotsTotal,
		SpotsAvailable:  c.SpotsAvailable,
		Price:           c.Price,
		DifficultyLevel: c.DifficultyLevel,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

type reservationResponse struct {
	ID               string     `json:"id"`
	ClassID          string     `json:"classId"`
	CooperatorID     string     `json:"cooperatorId"`
	CooperatorUserID string     `json:"cooperatorUserId"`
	IdempotencyKey   string     `json:"idempotencyKey"`
	Status           string     `json:"status"`
	UserEmail        *string    `json:"userEmail,omitempty"`
	UserName         *string    `json:"userName,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	CancellationNote *string    `json:"cancellationNote,omitempty"`
}

func toReservationResponse(r *reservation.Reservation) reservationResponse {
	return reservationResponse{
		ID:               r.ID,
		ClassID:          r.ClassID,
		CooperatorID:     r.CooperatorID,
		CooperatorUserID: r.CooperatorUserID,
		IdempotencyKey:   r.IdempotencyKey,
		Status:           r.Status,
		UserEmail:        r.UserEmail,
		UserName:         r.UserName,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		CancelledAt:      r.CancelledAt,
		CancellationNote: r.CancellationNote,
	}
}
