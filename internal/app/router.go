package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"driverpro/internal/handler"
	"driverpro/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler     *handler.TripHandler
	CardHandler     *handler.CardHandler
	RechargeHandler *handler.RechargeHandler
	SweepHandler    *handler.SweepHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.ListByDriver)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/start", deps.TripHandler.StartTrip)
			trips.POST("/:id/pause", deps.TripHandler.PauseTrip)
			trips.POST("/:id/resume", deps.TripHandler.ResumeTrip)
			trips.POST("/:id/done", deps.TripHandler.DoneTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.POST("/:id/refund-credit", deps.TripHandler.RefundCredit)
			trips.POST("/:id/start-empty", deps.TripHandler.StartEmpty)
			trips.POST("/:id/convert-empty", deps.TripHandler.ConvertEmpty)
			trips.POST("/:id/cancel-empty", deps.TripHandler.CancelEmpty)
		}

		// Card routes.
		cards := v1.Group("/cards")
		{
			cards.POST("", deps.CardHandler.CreateCard)
			cards.GET("", deps.CardHandler.GetAll)
			cards.GET("/:id", deps.CardHandler.GetCard)
			cards.GET("/:id/movements", deps.CardHandler.GetMovements)
			cards.POST("/:id/assign-vehicle", deps.CardHandler.AssignVehicle)
		}

		// Recharge routes.
		recharges := v1.Group("/recharges")
		{
			recharges.POST("", deps.RechargeHandler.CreateRecharge)
			recharges.POST("/:id/confirm", deps.RechargeHandler.ConfirmRecharge)
			recharges.POST("/:id/cancel", deps.RechargeHandler.CancelRecharge)
			recharges.PATCH("/:id", deps.RechargeHandler.UpdateRecharge)
		}

		// Sweep routes, hit by the scheduler.
		sweeps := v1.Group("/sweeps")
		{
			sweeps.POST("/empty-trips", deps.SweepHandler.SweepEmptyTrips)
			sweeps.POST("/scheduled-reminders", deps.SweepHandler.SweepScheduledReminders)
		}
	}

	return router
}
