package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/carrental/internal/service/reservation"
	"github.com/Domenick1991/carrental/internal/service/stats"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	reservations reservation.ReservationUseCase
	stats        stats.StatsUseCase
	now          func() time.Time
}

func NewAdminHandler(reservations reservation.ReservationUseCase, stats stats.StatsUseCase) *AdminHandler {
	return &AdminHandler{reservations: reservations, stats: stats, now: time.Now}
}

// Register expects router to already carry RequireIdentity and RequireAdmin.
func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET("/reservations", h.listReservations)
	router.PUT("/reservations/:id/confirm", h.confirm)
	router.DELETE("/reservations/:id", h.cancel)
	router.POST("/reservations/finish", h.finish)
	router.GET("/listings/:id/conflicts", h.conflicts)
	router.GET("/stats", h.statistics)
}

func (h *AdminHandler) listReservations(c *gin.Context) {
	filter, err := reservationFilterFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	filter.RenterID = c.Query("renter_id")
	filter.ListingID = c.Query("listing_id")

	list, err := h.reservations.ListReservations(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponses(list))
}

func (h *AdminHandler) confirm(c *gin.Context) {
	res, err := h.reservations.ConfirmReservation(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *AdminHandler) cancel(c *gin.Context) {
	res, err := h.reservations.CancelReservation(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *AdminHandler) finish(c *gin.Context) {
	finished, err := h.reservations.FinishExpired(c.Request.Context(), h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"finished": len(finished), "reservations": toReservationResponses(finished)})
}

func (h *AdminHandler) conflicts(c *gin.Context) {
	conflicts, err := h.reservations.DetectConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conflicts)
}

func (h *AdminHandler) statistics(c *gin.Context) {
	year := h.now().Year()
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		year = y
	}

	report, err := h.stats.Yearly(c.Request.Context(), year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
