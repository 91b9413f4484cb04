package class

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"studiobook/pkg/db/option"
	"studiobook/pkg/db/pagination"
	"studiobook/pkg/errutil"
	"studiobook/pkg/rediskey"
	"studiobook/pkg/repository"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Authorizer answers venue-access questions for a cooperator.
type Authorizer interface {
	HasVenueAccess(ctx context.Context, cooperatorID, venueID string) (bool, error)
}

type ListInput struct {
	pagination.Pagination
	StartDate       *time.Time `form:"startDate" time_format:"2006-01-02"`
	EndDate         *time.Time `form:"endDate" time_format:"2006-01-02"`
	DifficultyLevel string     `form:"difficultyLevel"`
	OnlyAvailable   bool       `form:"onlyAvailable"`
}

type ListOutput struct {
	Data []*Class `json:"data"`
	pagination.PageInfo
}

type Service struct {
	db    *gorm.DB
	authz Authorizer
	cache *ListingCache
	repo  repository.Repository[Class]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Authz Authorizer
	Cache *ListingCache
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		authz: p.Authz,
		cache: p.Cache,
		repo:  repository.ProvideStore[Class](p.DB),
	}
}

// ListByVenue returns the venue's bookable classes, read through the listing
// cache. Access is checked before the cache is consulted, so a cached entry is
// never served to a cooperator whose grant was revoked.
func (s *Service) ListByVenue(ctx context.Context, cooperatorID, venueID string, in ListInput) (*ListOutput, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("venue_id", venueID),
	)

	hasAccess, err := s.authz.HasVenueAccess(ctx, cooperatorID, venueID)
	if err != nil {
		zapLog.Error("failed to check venue access", zap.Error(err))
		return nil, errutil.Internal("failed to list classes", errutil.WithErr(err))
	}
	if !hasAccess {
		return nil, errutil.NotFound("venue not found or access denied")
	}

	key := rediskey.BuildClassListKey(venueID, filterHash(in))
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached, nil
		}

		return s.cache.Do(key, func() (*ListOutput, error) {
			out, err := s.listByVenue(ctx, venueID, in)
			if err != nil {
				return nil, err
			}
			s.cache.Set(ctx, venueID, key, out)
			return out, nil
		})
	}

	return s.listByVenue(ctx, venueID, in)
}

func (s *Service) listByVenue(ctx context.Context, venueID string, in ListInput) (*ListOutput, error) {
	p := in.Pagination.Normalize()

	opts := []option.QueryOption{}
	if in.StartDate != nil {
		opts = append(opts, option.Where("start_time >= ?", *in.StartDate))
	}
	if in.EndDate != nil {
		opts = append(opts, option.Where("start_time <= ?", *in.EndDate))
	}
	if in.DifficultyLevel != "" {
		opts = append(opts, option.Where("difficulty_level = ?", in.DifficultyLevel))
	}
	if in.OnlyAvailable {
		opts = append(opts, option.Where("spots_available > 0"))
	}

	query := &Class{VenueID: venueID, IsActive: true}
	opts = append(opts, option.Where("is_cancelled = ?", false))

	total, err := s.repo.Count(ctx, query, opts...)
	if err != nil {
		return nil, errutil.Internal("failed to list classes", errutil.WithErr(err))
	}

	classes, err := s.repo.Find(ctx, query, append(opts,
		option.ApplyPagination(p),
		option.OrderBy("start_time ASC"),
	)...)
	if err != nil {
		return nil, errutil.Internal("failed to list classes", errutil.WithErr(err))
	}

	return &ListOutput{
		Data:     classes,
		PageInfo: pagination.PageInfo{Total: total, Page: p.Page, Limit: p.Limit},
	}, nil
}

// GetClass returns a single bookable class the cooperator may see. Absence
// and denied access are the same outcome.
func (s *Service) GetClass(ctx context.Context, cooperatorID, classID string) (*Class, error) {
	cls, err := s.repo.FindOne(ctx, &Class{ID: classID})
	if err != nil {
		return nil, errutil.Internal("failed to load class", errutil.WithErr(err))
	}
	if cls == nil || !cls.IsActive || cls.IsCancelled {
		return nil, errutil.NotFound("class not found")
	}

	hasAccess, err := s.authz.HasVenueAccess(ctx, cooperatorID, cls.VenueID)
	if err != nil {
		return nil, errutil.Internal("failed to check venue access", errutil.WithErr(err))
	}
	if !hasAccess {
		return nil, errutil.NotFound("class not found or access denied")
	}

	return cls, nil
}

// filterHash gives a deterministic cache key suffix for a filter set.
func filterHash(in ListInput) string {
	raw, _ := json.Marshal(in)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}
