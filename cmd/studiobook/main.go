package main

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"studiobook/internal/httpapi"
	"studiobook/pkg/clock"
	"studiobook/pkg/config"
	"studiobook/pkg/db"
	"studiobook/pkg/health"
	"studiobook/pkg/logger"
	"studiobook/pkg/redis"
	"studiobook/pkg/server"
	"studiobook/services/apikey"
	"studiobook/services/auth"
	"studiobook/services/class"
	"studiobook/services/cooperator"
	"studiobook/services/reservation"
	"studiobook/services/venue"

	"github.com/bwmarrin/snowflake"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		fx.Provide(
			clock.New,
			newSnowflakeNode,
			asVenueAuthorizer,
			asClassAuthorizer,
			asVenueAccess,
			asCacheInvalidator,
		),
		health.Module,
		auth.Module,
		venue.Module,
		class.Module,
		reservation.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fx.Invoke(
			migrate,
			db.Otel,
			db.Metric,
		),
	)

	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func asVenueAuthorizer(s *auth.Service) venue.Authorizer    { return s }
func asClassAuthorizer(s *auth.Service) class.Authorizer    { return s }
func asVenueAccess(s *auth.Service) reservation.VenueAccess { return s }

func asCacheInvalidator(c *class.ListingCache) reservation.CacheInvalidator {
	return c
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&cooperator.Cooperator{},
		&apikey.APIKey{},
		&venue.Venue{},
		&venue.VenueCooperator{},
		&class.Class{},
		&reservation.Reservation{},
	)
}
