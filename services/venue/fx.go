package venue

import "go.uber.org/fx"

var Module = fx.Module("venue.module",
	fx.Provide(
		NewService,
	),
)
