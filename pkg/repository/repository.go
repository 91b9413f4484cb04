package repository

import (
	"context"
	"errors"

	"studiobook/pkg/db/option"

	"gorm.io/gorm"
)

// Repository is a thin generic data-access layer over gorm. WithTrx returns a
// view of the repository bound to an open transaction so services can compose
// reads and writes inside one unit of work.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) apply(ctx context.Context, opts []option.QueryOption) *gorm.DB {
	tx := s.db.WithContext(ctx)
	for _, opt := range opts {
		tx = opt(tx)
	}
	return tx
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var out []*T
	if err := s.apply(ctx, opts).Where(query).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne returns (nil, nil) when no row matches; absence is not an error.
func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var out T
	err := s.apply(ctx, opts).Where(query).First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (s *store[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

func (s *store[T]) Update(ctx context.Context, resourceID string, resource any) error {
	var model T
	return s.db.WithContext(ctx).Model(&model).Where("id = ?", resourceID).Updates(resource).Error
}

func (s *store[T]) Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error) {
	var model T
	var count int64
	tx := s.apply(ctx, opts)
	if err := tx.Model(&model).Where(query).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
