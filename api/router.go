package api

import (
	"net/http"

	"github.com/Domenick1991/carrental/internal/service/listings"
	"github.com/Domenick1991/carrental/internal/service/reservation"
	"github.com/Domenick1991/carrental/internal/service/stats"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

type RouterConfig struct {
	// SwaggerDir holds a pre-generated swagger.json; empty disables the docs routes.
	SwaggerDir string
}

func NewRouter(cfg RouterConfig, listingSvc listings.ListingUseCase, reservationSvc reservation.ReservationUseCase, statsSvc stats.StatsUseCase) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	NewListingHandler(listingSvc, reservationSvc).Register(v1.Group("/listings"))
	NewReservationHandler(reservationSvc).Register(v1.Group("/reservations", RequireIdentity()))
	NewAdminHandler(reservationSvc, statsSvc).Register(v1.Group("/admin", RequireIdentity(), RequireAdmin()))

	if cfg.SwaggerDir != "" {
		router.Static("/swagger", cfg.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/swagger.json"))))
	}

	return router
}
