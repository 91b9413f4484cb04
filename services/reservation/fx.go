package reservation

import "go.uber.org/fx"

var Module = fx.Module("reservation.module",
	fx.Provide(
		NewService,
	),
)
