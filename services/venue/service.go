package venue

import (
	"context"

	"studiobook/pkg/db/option"
	"studiobook/pkg/db/pagination"
	"studiobook/pkg/errutil"
	"studiobook/pkg/repository"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Authorizer answers venue-access questions for a cooperator. Implemented by
// the access authority; declared here so the read side depends only on the
// capability it needs.
type Authorizer interface {
	HasVenueAccess(ctx context.Context, cooperatorID, venueID string) (bool, error)
	AccessibleVenueIDs(ctx context.Context, cooperatorID string) ([]string, error)
}

type ListInput struct {
	pagination.Pagination
	City  string `form:"city"`
	State string `form:"state"`
}

type ListOutput struct {
	Data []*Venue `json:"data"`
	pagination.PageInfo
}

type Service struct {
	db    *gorm.DB
	authz Authorizer
	repo  repository.Repository[Venue]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Authz Authorizer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		authz: p.Authz,
		repo:  repository.ProvideStore[Venue](p.DB),
	}
}

// ListVenues returns the active, api-enabled venues the cooperator is granted,
// optionally filtered by city/state.
func (s *Service) ListVenues(ctx context.Context, cooperatorID string, in ListInput) (*ListOutput, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	p := in.Pagination.Normalize()
	out := &ListOutput{
		Data:     []*Venue{},
		PageInfo: pagination.PageInfo{Page: p.Page, Limit: p.Limit},
	}

	ids, err := s.authz.AccessibleVenueIDs(ctx, cooperatorID)
	if err != nil {
		zapLog.Error("failed to resolve accessible venues", zap.Error(err))
		return nil, errutil.Internal("failed to list venues", errutil.WithErr(err))
	}
	if len(ids) == 0 {
		return out, nil
	}

	opts := []option.QueryOption{
		option.Where("id IN ?", ids),
	}
	if in.City != "" {
		opts = append(opts, option.Where("LOWER(city) LIKE LOWER(?)", "%"+in.City+"%"))
	}
	if in.State != "" {
		opts = append(opts, option.Where("LOWER(state) LIKE LOWER(?)", "%"+in.State+"%"))
	}

	query := &Venue{IsActive: true, APIEnabled: true}

	total, err := s.repo.Count(ctx, query, opts...)
	if err != nil {
		zapLog.Error("failed to count venues", zap.Error(err))
		return nil, errutil.Internal("failed to list venues", errutil.WithErr(err))
	}

	venues, err := s.repo.Find(ctx, query, append(opts,
		option.ApplyPagination(p),
		option.OrderBy("name ASC"),
	)...)
	if err != nil {
		zapLog.Error("failed to list venues", zap.Error(err))
		return nil, errutil.Internal("failed to list venues", errutil.WithErr(err))
	}

	out.Data = venues
	out.Total = total
	return out, nil
}

// GetVenue returns one venue the cooperator may see. Missing venue and missing
// access collapse into the same not-found outcome.
func (s *Service) GetVenue(ctx context.Context, cooperatorID, venueID string) (*Venue, error) {
	hasAccess, err := s.authz.HasVenueAccess(ctx, cooperatorID, venueID)
	if err != nil {
		return nil, errutil.Internal("failed to check venue access", errutil.WithErr(err))
	}
	if !hasAccess {
		return nil, errutil.NotFound("venue not found or access denied")
	}

	v, err := s.repo.FindOne(ctx, &Venue{ID: venueID, IsActive: true, APIEnabled: true})
	if err != nil {
		return nil, errutil.Internal("failed to load venue", errutil.WithErr(err))
	}
	if v == nil {
		return nil, errutil.NotFound("venue not found or access denied")
	}
	return v, nil
}
