package reservation

import (
	"context"
	"errors"
	"time"

	"studiobook/pkg/clock"
	"studiobook/pkg/config"
	"studiobook/pkg/db/option"
	"studiobook/pkg/errutil"
	"studiobook/pkg/repository"
	"studiobook/services/class"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VenueAccess re-checks venue authorization against an explicit storage
// handle, so the check can run inside the booking transaction rather than
// trusting a decision made before it began.
type VenueAccess interface {
	HasVenueAccessIn(ctx context.Context, tx *gorm.DB, cooperatorID, venueID string) (bool, error)
}

// CacheInvalidator drops derived listing state after a committed state
// change. Strictly best-effort: it runs outside the transaction and its
// failure never affects the booking outcome.
type CacheInvalidator interface {
	InvalidateVenue(ctx context.Context, venueID string)
}

type CreateInput struct {
	ClassID          string  `json:"classId" binding:"required"`
	CooperatorUserID string  `json:"cooperatorUserId" binding:"required"`
	IdempotencyKey   string  `json:"idempotencyKey" binding:"required"`
	UserEmail        *string `json:"userEmail"`
	UserName         *string `json:"userName"`
}

// Service is the reservation engine: capacity-safe booking and cancellation.
// Mutual exclusion is delegated to the storage layer; the conditional
// capacity updates are the authoritative guard against oversell.
type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	clk       clock.Clock
	access    VenueAccess
	cache     CacheInvalidator
	txTimeout time.Duration
	repo      repository.Repository[Reservation]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Clock  clock.Clock
	Config *config.Config
	Access VenueAccess
	Cache  CacheInvalidator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	txTimeout := p.Config.Reservation.TxTimeout
	if txTimeout <= 0 {
		txTimeout = 10 * time.Second
	}
	return &Service{
		db:        p.DB,
		node:      p.Node,
		clk:       p.Clock,
		access:    p.Access,
		cache:     p.Cache,
		txTimeout: txTimeout,
		repo:      repository.ProvideStore[Reservation](p.DB),
	}
}

// Create books one spot. Retried requests with the same idempotency key return
// the original reservation; under concurrent requests for the last spot,
// exactly one booking succeeds and the rest observe a conflict.
func (s *Service) Create(ctx context.Context, cooperatorID string, in CreateInput) (*Reservation, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("class_id", in.ClassID),
	)

	if in.ClassID == "" || in.IdempotencyKey == "" || in.CooperatorUserID == "" {
		return nil, errutil.BadRequest("classId, cooperatorUserId and idempotencyKey are required")
	}

	// Fast idempotency path; the partial unique index remains the
	// authoritative guard under races.
	existing, err := s.confirmedByKey(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, errutil.Internal("failed to create reservation", errutil.WithErr(err))
	}
	if existing != nil {
		return existing, nil
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var out *Reservation
	var venueID string

	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		var cls class.Class
		if err := tx.Where("id = ?", in.ClassID).First(&cls).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.NotFound("class not found or access denied")
			}
			return err
		}

		hasAccess, err := s.access.HasVenueAccessIn(txCtx, tx, cooperatorID, cls.VenueID)
		if err != nil {
			return err
		}
		if !hasAccess {
			// Same outcome as a missing class: existence must not leak.
			return errutil.NotFound("class not found or access denied")
		}

		if !cls.IsActive || cls.IsCancelled {
			return errutil.UnprocessableEntity("class is not available for booking")
		}

		if !cls.StartTime.After(s.clk.Now()) {
			return errutil.UnprocessableEntity("cannot book classes that have already started")
		}

		if cls.SpotsAvailable <= 0 {
			return errutil.Conflict("no spots available for this class")
		}

		res := &Reservation{
			ID:               s.node.Generate().String(),
			ClassID:          in.ClassID,
			CooperatorID:     cooperatorID,
			CooperatorUserID: in.CooperatorUserID,
			IdempotencyKey:   in.IdempotencyKey,
			Status:           string(StatusConfirmed),
			UserEmail:        in.UserEmail,
			UserName:         in.UserName,
		}
		if err := tx.Create(res).Error; err != nil {
			return err
		}

		// Paired decrement. The spots_available > 0 predicate is what makes
		// the last spot go to exactly one of any number of racing bookings:
		// the losers see zero rows affected and the whole unit of work,
		// reservation row included, rolls back.
		upd := tx.Model(&class.Class{}).
			Where("id = ? AND spots_available > 0", cls.ID).
			UpdateColumn("spots_available", gorm.Expr("spots_available - 1"))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return errutil.Conflict("no spots available for this class")
		}

		out = res
		venueID = cls.VenueID
		return nil
	})
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) {
			return nil, err
		}

		// A racing twin with the same fresh key lost the unique-index race:
		// the winner's reservation is the result of this request too.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			winner, ferr := s.confirmedByKey(ctx, in.IdempotencyKey)
			if ferr == nil && winner != nil {
				return winner, nil
			}
			return nil, errutil.Conflict("duplicate booking request")
		}

		if errors.Is(err, context.DeadlineExceeded) || txCtx.Err() != nil {
			return nil, errutil.Timeout("booking timed out, safe to retry with the same idempotency key")
		}

		zapLog.Error("booking transaction failed", zap.Error(err))
		return nil, errutil.Internal("failed to create reservation", errutil.WithErr(err))
	}

	// Post-commit, outside any lock.
	if s.cache != nil {
		s.cache.InvalidateVenue(ctx, venueID)
	}

	return out, nil
}

// Cancel transitions a reservation to cancelled and restores its spot, both in
// one unit of work. Cancelling twice is rejected, not a no-op.
func (s *Service) Cancel(ctx context.Context, cooperatorID, reservationID string, note *string) (*Reservation, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("reservation_id", reservationID),
	)

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var out *Reservation
	var venueID string

	err := s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		var res Reservation
		if err := tx.Where("id = ?", reservationID).First(&res).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.NotFound("reservation not found")
			}
			return err
		}

		// Ownership and existence collapse to the same outcome.
		if res.CooperatorID != cooperatorID {
			return errutil.NotFound("reservation not found")
		}

		if res.Status == string(StatusCancelled) {
			return errutil.UnprocessableEntity("reservation is already cancelled")
		}

		var cls class.Class
		if err := tx.Where("id = ?", res.ClassID).First(&cls).Error; err != nil {
			return err
		}

		if !cls.StartTime.After(s.clk.Now()) {
			return errutil.UnprocessableEntity("cannot cancel reservations for classes that have already started")
		}

		now := s.clk.Now()
		upd := tx.Model(&Reservation{}).
			Where("id = ? AND status = ?", res.ID, string(StatusConfirmed)).
			Updates(map[string]interface{}{
				"status":            string(StatusCancelled),
				"cancelled_at":      now,
				"cancellation_note": note,
				"updated_at":        now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			// Lost a race against another cancel of the same reservation.
			return errutil.UnprocessableEntity("reservation is already cancelled")
		}

		// Paired increment, guarded so a refund can never push availability
		// past the total.
		inc := tx.Model(&class.Class{}).
			Where("id = ? AND spots_available < spots_total", cls.ID).
			UpdateColumn("spots_available", gorm.Expr("spots_available + 1"))
		if inc.Error != nil {
			return inc.Error
		}
		if inc.RowsAffected == 0 {
			return errutil.Internal("capacity accounting mismatch for class " + cls.ID)
		}

		res.Status = string(StatusCancelled)
		res.CancelledAt = &now
		res.CancellationNote = note
		out = &res
		venueID = cls.VenueID
		return nil
	})
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) || txCtx.Err() != nil {
			return nil, errutil.Timeout("cancellation timed out, safe to retry")
		}
		zapLog.Error("cancellation transaction failed", zap.Error(err))
		return nil, errutil.Internal("failed to cancel reservation", errutil.WithErr(err))
	}

	if s.cache != nil {
		s.cache.InvalidateVenue(ctx, venueID)
	}

	return out, nil
}

// FindOne returns the reservation if it exists and belongs to the cooperator.
func (s *Service) FindOne(ctx context.Context, cooperatorID, reservationID string) (*Reservation, error) {
	res, err := s.repo.FindOne(ctx, &Reservation{ID: reservationID})
	if err != nil {
		return nil, errutil.Internal("failed to load reservation", errutil.WithErr(err))
	}
	if res == nil || res.CooperatorID != cooperatorID {
		return nil, errutil.NotFound("reservation not found")
	}
	return res, nil
}

// FindAll lists the cooperator's reservations, newest first.
func (s *Service) FindAll(ctx context.Context, cooperatorID string) ([]*Reservation, error) {
	out, err := s.repo.Find(ctx, &Reservation{CooperatorID: cooperatorID},
		option.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, errutil.Internal("failed to list reservations", errutil.WithErr(err))
	}
	return out, nil
}

func (s *Service) confirmedByKey(ctx context.Context, key string) (*Reservation, error) {
	return s.repo.FindOne(ctx, &Reservation{
		IdempotencyKey: key,
		Status:         string(StatusConfirmed),
	})
}
