package middleware

import (
	"errors"
	"net/http"

	"studiobook/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error maps service errors attached to the gin context onto the wire after
// the handler chain runs. Only the taxonomy is part of the core contract; the
// HTTP codes live here at the edge.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(last.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    errutil.StatusInternal,
				"message": "internal error",
			},
		})
	}
}
