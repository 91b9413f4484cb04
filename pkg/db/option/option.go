package option

import (
	"studiobook/pkg/db/pagination"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm query before execution.
type QueryOption func(*gorm.DB) *gorm.DB

func ApplyPagination(p pagination.Pagination) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		n := p.Normalize()
		return tx.Offset(p.Offset()).Limit(n.Limit)
	}
}

func OrderBy(expr string) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Order(expr)
	}
}

func Where(query interface{}, args ...interface{}) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(query, args...)
	}
}
