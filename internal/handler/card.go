package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"driverpro/internal/domain"
	"driverpro/internal/service"
)

// CardHandler handles HTTP requests for cards.
type CardHandler struct {
	cardService *service.CardService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardService *service.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

// CreateCardRequest is the HTTP request body for creating a card.
type CreateCardRequest struct {
	Number    string `json:"number" binding:"required"`
	VehicleID string `json:"vehicle_id"`
	Notes     string `json:"notes"`
}

// CardResponse is the HTTP response for card operations.
type CardResponse struct {
	CardID        string  `json:"card_id"`
	Number        string  `json:"number"`
	Active        bool    `json:"active"`
	VehicleID     string  `json:"vehicle_id,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	Balance       float64 `json:"balance"`
	CreditWarning string  `json:"credit_warning,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func cardToResponse(card *domain.Card, balance float64, warning string) CardResponse {
	return CardResponse{
		CardID:        card.ID,
		Number:        card.Number,
		Active:        card.Active,
		VehicleID:     card.VehicleID,
		Notes:         card.Notes,
		Balance:       balance,
		CreditWarning: warning,
		CreatedAt:     card.CreatedAt.Format(timeFormat),
	}
}

// CreateCard handles POST /v1/cards
func (h *CardHandler) CreateCard(c *gin.Context) {
	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	card, err := h.cardService.CreateCard(c.Request.Context(), service.CreateCardRequest{
		Number:    req.Number,
		VehicleID: req.VehicleID,
		Notes:     req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, cardToResponse(card, 0, domain.CreditWarning(0)))
}

// GetCard handles GET /v1/cards/:id
func (h *CardHandler) GetCard(c *gin.Context) {
	snap, err := h.cardService.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, cardToResponse(snap.Card, snap.Balance, snap.CreditWarning))
}

// GetAll handles GET /v1/cards
func (h *CardHandler) GetAll(c *gin.Context) {
	cards, err := h.cardService.GetAllCards(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CardResponse, 0, len(cards))
	for _, card := range cards {
		balance, err := h.cardService.Balance(c.Request.Context(), card.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		response = append(response, cardToResponse(card, balance, domain.CreditWarning(balance)))
	}

	respondJSON(c, http.StatusOK, response)
}

// MovementResponse is one ledger entry in the movements listing.
type MovementResponse struct {
	MovementID string  `json:"movement_id"`
	Type       string  `json:"type"`
	Amount     float64 `json:"amount"`
	Reference  string  `json:"reference,omitempty"`
	RechargeID string  `json:"recharge_id,omitempty"`
	TripID     string  `json:"trip_id,omitempty"`
	OccurredAt string  `json:"occurred_at"`
}

// GetMovements handles GET /v1/cards/:id/movements
func (h *CardHandler) GetMovements(c *gin.Context) {
	movements, err := h.cardService.Movements(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		response = append(response, MovementResponse{
			MovementID: m.ID,
			Type:       string(m.Type),
			Amount:     m.Amount,
			Reference:  m.Reference,
			RechargeID: m.RechargeID,
			TripID:     m.TripID,
			OccurredAt: m.OccurredAt.Format(timeFormat),
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// AssignVehicleRequest is the HTTP request body for reassigning a card. An
// empty vehicle_id detaches the card.
type AssignVehicleRequest struct {
	VehicleID string `json:"vehicle_id"`
}

// AssignVehicle handles POST /v1/cards/:id/assign
func (h *CardHandler) AssignVehicle(c *gin.Context) {
	var req AssignVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	card, err := h.cardService.AssignVehicle(c.Request.Context(), c.Param("id"), req.VehicleID)
	if err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.cardService.Balance(c.Request.Context(), card.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, cardToResponse(card, balance, domain.CreditWarning(balance)))
}
