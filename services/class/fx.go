package class

import (
	"studiobook/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideListingCache(rdb *redis.Client, cfg *config.Config) *ListingCache {
	return NewListingCache(rdb, cfg.Cache.ClassListTTL)
}

var Module = fx.Module("class.module",
	fx.Provide(
		ProvideListingCache,
		NewService,
	),
)
