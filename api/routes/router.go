// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"sorteo/internal/draws"
	"sorteo/internal/history"
	"sorteo/internal/notifications"
	"sorteo/internal/reservation"
	"sorteo/internal/shared/clock"
	"sorteo/internal/shared/config"
	"sorteo/internal/shared/database"
	"sorteo/internal/tickets"
	"sorteo/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	clock    clock.Clock
	producer notifications.EventProducer

	cacheService cache.Service
	coordinator  reservation.Coordinator
	drawService  draws.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, clk clock.Clock, producer notifications.EventProducer) *Router {
	return &Router{
		config:   cfg,
		db:       db,
		clock:    clk,
		producer: producer,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	draws.RegisterValidators()

	// Shared infrastructure first; the services below depend on it
	r.cacheService = cache.NewService(r.db.GetRedisClient())
	r.coordinator = reservation.NewRedisCoordinator(r.db.GetRedisClient(), r.clock, r.config.Raffle.NumberHoldTTLMax)

	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		resRepo := reservation.NewRepository(r.db.GetPostgreSQL())

		// History first so the draw state machine can archive into it
		historyService := history.NewService(history.NewRepository(r.db.GetPostgreSQL()), r.clock)
		historyService.SetCacheService(r.cacheService)

		drawService := draws.NewService(
			draws.NewRepository(r.db.GetPostgreSQL()),
			resRepo,
			r.coordinator,
			historyService,
			r.clock,
			r.config,
		)
		drawService.SetNotifier(notifications.NewDrawNotifier(r.producer, r.clock))
		drawService.SetCacheService(r.cacheService)
		r.drawService = drawService

		reservationService := reservation.NewService(r.coordinator, resRepo, r.config)
		reservationService.SetCacheService(r.cacheService)
		reservationService.SetDrawService(drawService)

		ticketService := tickets.NewService(tickets.NewRepository(r.db.GetPostgreSQL()), r.clock)
		ticketService.SetNotifier(notifications.NewTicketNotifier(r.producer, r.clock))

		draws.SetupDrawRoutes(api, draws.NewController(drawService))
		reservation.SetupReservationRoutes(api, reservation.NewController(reservationService))
		tickets.SetupTicketRoutes(api, tickets.NewController(ticketService))
		history.SetupHistoryRoutes(api, history.NewController(historyService))
	}

	// Swagger documentation
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// DrawService exposes the state machine for the background job processor
func (r *Router) DrawService() draws.Service {
	return r.drawService
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "sorteo-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "sorteo-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
