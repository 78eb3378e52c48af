package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"driverpro/internal/domain"
	"driverpro/internal/service"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// CreateTripRequest is the HTTP request body for creating a trip.
type CreateTripRequest struct {
	Name               string  `json:"name"`
	DriverID           string  `json:"driver_id" binding:"required"`
	Origin             string  `json:"origin"`
	Destination        string  `json:"destination"`
	PassengerCount     int     `json:"passenger_count"`
	PassengerReference string  `json:"passenger_reference"`
	Comments           string  `json:"comments"`
	PaymentMethod      string  `json:"payment_method"`
	PaymentReference   string  `json:"payment_reference"`
	PaymentInForeign   bool    `json:"payment_in_foreign"`
	AmountLocal        float64 `json:"amount_local"`
	AmountForeign      float64 `json:"amount_foreign"`
	ExchangeRate       float64 `json:"exchange_rate"`
	IsRechargeTrip     bool    `json:"is_recharge_trip"`
	ScheduledAt        string  `json:"scheduled_at"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	TripID             string  `json:"trip_id"`
	Name               string  `json:"name"`
	DriverID           string  `json:"driver_id"`
	VehicleID          string  `json:"vehicle_id,omitempty"`
	CardID             string  `json:"card_id,omitempty"`
	State              string  `json:"state"`
	Origin             string  `json:"origin,omitempty"`
	Destination        string  `json:"destination,omitempty"`
	PassengerCount     int     `json:"passenger_count,omitempty"`
	PassengerReference string  `json:"passenger_reference,omitempty"`
	PaymentMethod      string  `json:"payment_method,omitempty"`
	PaymentInForeign   bool    `json:"payment_in_foreign,omitempty"`
	AmountLocal        float64 `json:"amount_local"`
	AmountForeign      float64 `json:"amount_foreign,omitempty"`
	ExchangeRate       float64 `json:"exchange_rate,omitempty"`
	TotalAmountLocal   float64 `json:"total_amount_local"`
	IsRechargeTrip     bool    `json:"is_recharge_trip"`
	CreditConsumed     bool    `json:"credit_consumed"`
	CreditRefunded     bool    `json:"credit_refunded"`
	ConsumedCredits    float64 `json:"consumed_credits,omitempty"`
	IsEmptyTrip        bool    `json:"is_empty_trip,omitempty"`
	EmptyWaitLimit     int     `json:"empty_wait_limit_minutes,omitempty"`
	EmptyMinutesLeft   int     `json:"empty_minutes_left,omitempty"`
	IsScheduled        bool    `json:"is_scheduled,omitempty"`
	ScheduledAt        string  `json:"scheduled_at,omitempty"`
	StartedAt          string  `json:"started_at,omitempty"`
	EndedAt            string  `json:"ended_at,omitempty"`
	DurationHours      float64 `json:"duration_hours,omitempty"`
	PausedHours        float64 `json:"paused_hours,omitempty"`
	EffectiveHours     float64 `json:"effective_hours,omitempty"`
	CurrentPauseReason string  `json:"current_pause_reason,omitempty"`
}

func tripToResponse(trip *domain.Trip) TripResponse {
	resp := TripResponse{
		TripID:             trip.ID,
		Name:               trip.Name,
		DriverID:           trip.DriverID,
		VehicleID:          trip.VehicleID,
		CardID:             trip.CardID,
		State:              string(trip.State),
		Origin:             trip.Origin,
		Destination:        trip.Destination,
		PassengerCount:     trip.PassengerCount,
		PassengerReference: trip.PassengerReference,
		PaymentMethod:      trip.PaymentMethod,
		PaymentInForeign:   trip.PaymentInForeign,
		AmountLocal:        trip.AmountLocal,
		AmountForeign:      trip.AmountForeign,
		ExchangeRate:       trip.ExchangeRate,
		TotalAmountLocal:   trip.TotalAmountLocal(),
		IsRechargeTrip:     trip.IsRechargeTrip,
		CreditConsumed:     trip.CreditConsumed,
		CreditRefunded:     trip.CreditRefunded,
		ConsumedCredits:    trip.ConsumedCredits,
		IsEmptyTrip:        trip.IsEmptyTrip,
		EmptyWaitLimit:     trip.EmptyWaitLimitMinutes,
		IsScheduled:        trip.IsScheduled,
		DurationHours:      trip.Duration(),
	}
	if !trip.ScheduledAt.IsZero() {
		resp.ScheduledAt = trip.ScheduledAt.Format(timeFormat)
	}
	if !trip.StartedAt.IsZero() {
		resp.StartedAt = trip.StartedAt.Format(timeFormat)
	}
	if !trip.EndedAt.IsZero() {
		resp.EndedAt = trip.EndedAt.Format(timeFormat)
	}
	return resp
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	svcReq := service.CreateTripRequest{
		Name:               req.Name,
		DriverID:           req.DriverID,
		Origin:             req.Origin,
		Destination:        req.Destination,
		PassengerCount:     req.PassengerCount,
		PassengerReference: req.PassengerReference,
		Comments:           req.Comments,
		PaymentMethod:      req.PaymentMethod,
		PaymentReference:   req.PaymentReference,
		PaymentInForeign:   req.PaymentInForeign,
		AmountLocal:        req.AmountLocal,
		AmountForeign:      req.AmountForeign,
		ExchangeRate:       req.ExchangeRate,
		IsRechargeTrip:     req.IsRechargeTrip,
	}
	if req.ScheduledAt != "" {
		scheduledAt, err := time.Parse(timeFormat, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid scheduled_at: " + err.Error()})
			return
		}
		svcReq.IsScheduled = true
		svcReq.ScheduledAt = scheduledAt
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, tripToResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	snap, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := tripToResponse(snap.Trip)
	response.PausedHours = snap.PausedHours
	response.EffectiveHours = snap.EffectiveHours
	response.EmptyMinutesLeft = snap.EmptyMinutesLeft
	response.CurrentPauseReason = snap.CurrentPauseReason

	respondJSON(c, http.StatusOK, response)
}

// ListByDriver handles GET /v1/trips?driver_id=...&limit=...
func (h *TripHandler) ListByDriver(c *gin.Context) {
	driverID := c.Query("driver_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	trips, err := h.tripService.ListByDriver(c.Request.Context(), driverID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, tripToResponse(trip))
	}

	respondJSON(c, http.StatusOK, response)
}

// StartTrip handles POST /v1/trips/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	h.apply(c, service.StartCommand{})
}

// PauseTripRequest is the HTTP request body for pausing a trip.
type PauseTripRequest struct {
	ReasonCode string `json:"reason_code"`
	Notes      string `json:"notes"`
}

// PauseTrip handles POST /v1/trips/:id/pause
func (h *TripHandler) PauseTrip(c *gin.Context) {
	var req PauseTripRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	h.apply(c, service.PauseCommand{ReasonCode: req.ReasonCode, Notes: req.Notes})
}

// ResumeTrip handles POST /v1/trips/:id/resume
func (h *TripHandler) ResumeTrip(c *gin.Context) {
	h.apply(c, service.ResumeCommand{})
}

// DoneTrip handles POST /v1/trips/:id/done
func (h *TripHandler) DoneTrip(c *gin.Context) {
	h.apply(c, service.DoneCommand{})
}

// CancelTripRequest is the HTTP request body for cancelling a trip.
type CancelTripRequest struct {
	Refund bool `json:"refund"`
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	var req CancelTripRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	h.apply(c, service.CancelCommand{Refund: req.Refund})
}

// RefundCredit handles POST /v1/trips/:id/refund-credit
func (h *TripHandler) RefundCredit(c *gin.Context) {
	h.apply(c, service.RefundCreditCommand{})
}

// StartEmptyRequest is the HTTP request body for starting a client search.
type StartEmptyRequest struct {
	WaitLimitMinutes int `json:"wait_limit_minutes"`
}

// StartEmpty handles POST /v1/trips/:id/start-empty
func (h *TripHandler) StartEmpty(c *gin.Context) {
	var req StartEmptyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	h.apply(c, service.StartEmptyCommand{WaitLimitMinutes: req.WaitLimitMinutes})
}

// ConvertEmptyRequest is the HTTP request body for converting a search into
// an active trip.
type ConvertEmptyRequest struct {
	ClientName  string `json:"client_name"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// ConvertEmpty handles POST /v1/trips/:id/convert
func (h *TripHandler) ConvertEmpty(c *gin.Context) {
	var req ConvertEmptyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	h.apply(c, service.ConvertEmptyCommand{
		ClientName:  req.ClientName,
		Origin:      req.Origin,
		Destination: req.Destination,
	})
}

// CancelEmpty handles POST /v1/trips/:id/cancel-empty
func (h *TripHandler) CancelEmpty(c *gin.Context) {
	h.apply(c, service.CancelEmptyCommand{})
}

func (h *TripHandler) apply(c *gin.Context, cmd service.TripCommand) {
	trip, err := h.tripService.Apply(c.Request.Context(), c.Param("id"), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToResponse(trip))
}
