package main

import (
	"log/slog"
	"net/http"

	"appointly/internal/config"
	"appointly/internal/database"
	"appointly/internal/middleware"
	"appointly/internal/modules/appointment"
	"appointly/internal/modules/booking"
	"appointly/internal/modules/reminder"
	"appointly/internal/pkg/jwt"
	"appointly/internal/pkg/response"
	"appointly/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type routerDeps struct {
	cfg    *config.Config
	log    *slog.Logger
	db     *gorm.DB
	tokens *jwt.Service

	booking      *booking.Handler
	appointments *appointment.Handler
	reminders    *reminder.Handler
	realtime     *realtime.Handler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(d.log),
		middleware.CORS(d.cfg.CORSAllowedOrigins),
	)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := database.Ping(c.Request.Context(), d.db); err != nil {
			d.log.Warn("readiness check failed", "error", err)
			response.Error(c, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/realtime", middleware.SubscriberAuth(d.tokens), d.realtime.Subscribe)

	v1 := r.Group("/api/v1")
	{
		d.booking.RegisterRoutes(v1)
		d.appointments.RegisterRoutes(v1)
		d.reminders.RegisterRoutes(v1)
	}

	return r
}
