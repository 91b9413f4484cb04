package httpapi

import (
	"net/http"

	"studiobook/pkg/errutil"
	"studiobook/pkg/health"
	"studiobook/pkg/middleware"
	"studiobook/services/auth"
	"studiobook/services/class"
	"studiobook/services/reservation"
	"studiobook/services/venue"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type Handler struct {
	auth         *auth.Service
	venues       *venue.Service
	classes      *class.Service
	reservations *reservation.Service
	health       health.HealthService
}

type HandlerParams struct {
	fx.In
	Auth         *auth.Service
	Venues       *venue.Service
	Classes      *class.Service
	Reservations *reservation.Service
	Health       health.HealthService
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		auth:         p.Auth,
		venues:       p.Venues,
		classes:      p.Classes,
		reservations: p.Reservations,
		health:       p.Health,
	}
}

// ProvideRouter builds the gin engine with all routes registered.
func ProvideRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Error())

	r.GET("/healthz", h.health.Liveness)
	r.GET("/readyz", h.health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/auth/token", h.issueToken)

	authed := v1.Group("")
	authed.Use(Authenticate(h.auth))
	{
		authed.GET("/venues", h.listVenues)
		authed.GET("/venues/:venueId", h.getVenue)
		authed.GET("/venues/:venueId/classes", h.listClasses)
		authed.GET("/classes/:id", h.getClass)
		authed.POST("/reservations", h.createReservation)
		authed.GET("/reservations", h.listReservations)
		authed.GET("/reservations/:id", h.getReservation)
		authed.DELETE("/reservations/:id", h.cancelReservation)
	}

	return r
}

var Module = fx.Module("httpapi",
	fx.Provide(
		NewHandler,
		ProvideRouter,
	),
)

type tokenRequest struct {
	GrantType    string `json:"grant_type" binding:"required"`
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

func (h *Handler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("grant_type, client_id and client_secret are required"))
		return
	}
	if req.GrantType != "client_credentials" {
		_ = c.Error(errutil.BadRequest("unsupported grant_type"))
		return
	}

	resp, err := h.auth.IssueToken(c.Request.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listVenues(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing identity"))
		return
	}

	var in venue.ListInput
	if err := c.ShouldBindQuery(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query parameters"))
		return
	}

	out, err := h.venues.ListVenues(c.Request.Context(), ident.ID, in)
	if err != nil {
		_ = c.Error(err)
		return
	}

	data := make([]venueResponse, 0, len(out.Data))
	for _, v := range out.Data {
		data = append(data, toVenueResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "total": out.Total, "page": out.Page, "limit": out.Limit})
}

func (h *Handler) getVenue(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing identity"))
		return
	}

	v, err := h.venues.GetVenue(c.Request.Context(), ident.ID, c.Param("venueId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toVenueResponse(v))
}

func (h *Handler) listClasses(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing identity"))
		return
	}

	var in class.ListInput
	if err := c.ShouldBindQuery(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query parameters"))
		return
	}

	out, err := h.classes.ListByVenue(c.Request.Context(), ident.ID, c.Param("venueId"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}

	data := make([]classResponse, 0, len(out.Data))
	for _, cls := range out.Data {
		data = append(data, toClassResponse(cls))
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "total": out.Total, "page": out.Page, "limit": out.Limit})
}

func (h *Handler) getClass(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing identity"))
		return
	}

	cls, err := h.classes.GetClass(c.Request.Context(), ident.ID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toClassResponse(cls))
}

func (h *Handler) createReservation(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing identity"))
		return
	}

	var in reservation.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.BadRequest("classId, cooperatorUserId and idempotencyKey are required"))
		return
	}

	res, err := h.reservations.Create(c.Request.Context(), ident.ID, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(res))
}

func (h *Handler) listReservations(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing identity"))
		return
	}

	out, err := h.reservations.FindAll(c.Request.Context(), ident.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	data := make([]reservationResponse, 0, len(out))
	for _, r := range out {
		data = append(data, toReservationResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *Handler) getReservation(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing identity"))
		return
	}

	res, err := h.reservations.FindOne(c.Request.Context(), ident.ID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

type cancelRequest struct {
	CancellationNote *string `json:"cancellationNote"`
}

func (h *Handler) cancelReservation(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		_ = c.Error(errutil.Unauthorized("missing identity"))
		return
	}

	var req cancelRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	res, err := h.reservations.Cancel(c.Request.Context(), ident.ID, c.Param("id"), req.CancellationNote)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}
