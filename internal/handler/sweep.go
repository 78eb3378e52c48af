package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"driverpro/internal/service"
)

// SweepHandler exposes the periodic maintenance passes. In production a cron
// or scheduler hits these endpoints once a minute.
type SweepHandler struct {
	sweepService *service.SweepService
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(sweepService *service.SweepService) *SweepHandler {
	return &SweepHandler{sweepService: sweepService}
}

// SweepResponse summarizes an empty-trip sweep pass.
type SweepResponse struct {
	Scanned    int `json:"scanned"`
	Cancelled  int `json:"cancelled"`
	AlertsSent int `json:"alerts_sent"`
}

// SweepEmptyTrips handles POST /v1/sweeps/empty-trips
func (h *SweepHandler) SweepEmptyTrips(c *gin.Context) {
	result, err := h.sweepService.SweepEmptyTrips(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SweepResponse{
		Scanned:    result.Scanned,
		Cancelled:  result.Cancelled,
		AlertsSent: result.AlertsSent,
	})
}

// ReminderSweepResponse summarizes a scheduled-reminder pass.
type ReminderSweepResponse struct {
	RemindersSent int `json:"reminders_sent"`
}

// SweepScheduledReminders handles POST /v1/sweeps/scheduled-reminders
func (h *SweepHandler) SweepScheduledReminders(c *gin.Context) {
	sent, err := h.sweepService.SweepScheduledReminders(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ReminderSweepResponse{RemindersSent: sent})
}
