package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"driverpro/internal/domain"
	"driverpro/internal/service"
)

// RechargeHandler handles HTTP requests for card recharges.
type RechargeHandler struct {
	cardService *service.CardService
}

// NewRechargeHandler creates a new RechargeHandler.
func NewRechargeHandler(cardService *service.CardService) *RechargeHandler {
	return &RechargeHandler{cardService: cardService}
}

// CreateRechargeRequest is the HTTP request body for creating a recharge.
type CreateRechargeRequest struct {
	CardID        string `json:"card_id" binding:"required"`
	Amount        int    `json:"amount" binding:"required"`
	InvoiceNumber string `json:"invoice_number"`
	Notes         string `json:"notes"`
}

// RechargeResponse is the HTTP response for recharge operations.
type RechargeResponse struct {
	RechargeID    string `json:"recharge_id"`
	CardID        string `json:"card_id"`
	Reference     string `json:"reference"`
	Amount        int    `json:"amount"`
	State         string `json:"state"`
	RechargeDate  string `json:"recharge_date"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

func rechargeToResponse(r *domain.Recharge) RechargeResponse {
	return RechargeResponse{
		RechargeID:    r.ID,
		CardID:        r.CardID,
		Reference:     r.Reference,
		Amount:        r.Amount,
		State:         string(r.State),
		RechargeDate:  r.RechargeDate.Format(timeFormat),
		InvoiceNumber: r.InvoiceNumber,
		Notes:         r.Notes,
	}
}

// CreateRecharge handles POST /v1/recharges
func (h *RechargeHandler) CreateRecharge(c *gin.Context) {
	var req CreateRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	recharge, err := h.cardService.CreateRecharge(c.Request.Context(), service.CreateRechargeRequest{
		CardID:        req.CardID,
		Amount:        req.Amount,
		InvoiceNumber: req.InvoiceNumber,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, rechargeToResponse(recharge))
}

// ConfirmRecharge handles POST /v1/recharges/:id/confirm
func (h *RechargeHandler) ConfirmRecharge(c *gin.Context) {
	recharge, err := h.cardService.ConfirmRecharge(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rechargeToResponse(recharge))
}

// CancelRecharge handles POST /v1/recharges/:id/cancel
func (h *RechargeHandler) CancelRecharge(c *gin.Context) {
	recharge, err := h.cardService.CancelRecharge(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rechargeToResponse(recharge))
}

// UpdateRechargeRequest is the HTTP request body for editing a recharge.
type UpdateRechargeRequest struct {
	Notes         *string `json:"notes"`
	InvoiceNumber *string `json:"invoice_number"`
}

// UpdateRecharge handles PATCH /v1/recharges/:id. The X-Manager header marks
// requests routed through the back office, which may edit confirmed
// recharges' notes and invoice fields.
func (h *RechargeHandler) UpdateRecharge(c *gin.Context) {
	var req UpdateRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	recharge, err := h.cardService.UpdateRecharge(c.Request.Context(), service.UpdateRechargeRequest{
		RechargeID:    c.Param("id"),
		Notes:         req.Notes,
		InvoiceNumber: req.InvoiceNumber,
		Manager:       c.GetHeader("X-Manager") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rechargeToResponse(recharge))
}
