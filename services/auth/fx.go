package auth

import (
	"go.uber.org/fx"

	"studiobook/services/apikey"
)

var Module = fx.Module("auth.module",
	fx.Provide(
		apikey.NewVerifier,
		NewTokenIssuer,
		NewService,
	),
)
