package httpapi

import (
	"strings"

	"studiobook/pkg/errutil"
	"studiobook/services/auth"
	"studiobook/services/cooperator"

	"github.com/gin-gonic/gin"
)

const identityKey = "studiobook.identity"

// Authenticate resolves the presented credential to a cooperator identity.
// Two presentations are accepted: a verbatim key in X-API-Key, or a bearer
// value in Authorization which is tried as a signed token first and as a
// verbatim key second. The resolved identity is a plain value handed to
// handlers; nothing downstream re-reads the credential.
func Authenticate(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if key := c.GetHeader("X-API-Key"); key != "" {
			coop, err := authSvc.AuthenticateByKey(ctx, key)
			if err != nil {
				_ = c.Error(err)
				c.Abort()
				return
			}
			c.Set(identityKey, coop.Identity())
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			_ = c.Error(errutil.Unauthorized("API key is missing"))
			c.Abort()
			return
		}
		bearer := strings.TrimPrefix(header, "Bearer ")

		coop, err := authSvc.AuthenticateByToken(ctx, bearer)
		if err != nil {
			coop, err = authSvc.AuthenticateByKey(ctx, bearer)
		}
		if err != nil {
			_ = c.Error(errutil.Unauthorized("invalid credentials"))
			c.Abort()
			return
		}

		c.Set(identityKey, coop.Identity())
		c.Next()
	}
}

func identityFrom(c *gin.Context) (cooperator.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return cooperator.Identity{}, false
	}
	ident, ok := v.(cooperator.Identity)
	return ident, ok
}
