package errutil

import "net/http"

// CoreStatus is the transport-agnostic outcome category raised by services.
// The edge layers own the mapping to wire status codes.
type CoreStatus string

const (
	StatusBadRequest          CoreStatus = "BAD_REQUEST"
	StatusUnauthorized        CoreStatus = "UNAUTHORIZED"
	StatusForbidden           CoreStatus = "FORBIDDEN"
	StatusNotFound            CoreStatus = "NOT_FOUND"
	StatusConflict            CoreStatus = "CONFLICT"
	StatusUnprocessableEntity CoreStatus = "UNPROCESSABLE_ENTITY"
	StatusTimeout             CoreStatus = "TIMEOUT"
	StatusInternal            CoreStatus = "INTERNAL"
	StatusUnknown             CoreStatus = "UNKNOWN"
)

// HTTPStatus converts the CoreStatus to its closest HTTP status code
// equivalent.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest:
		return http.StatusBadRequest
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict:
		return http.StatusConflict
	case StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case StatusTimeout:
		return http.StatusGatewayTimeout
	case StatusInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
