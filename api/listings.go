package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/listings"
	"github.com/Domenick1991/carrental/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	service      listings.ListingUseCase
	reservations reservation.ReservationUseCase
}

func NewListingHandler(service listings.ListingUseCase, reservations reservation.ReservationUseCase) *ListingHandler {
	return &ListingHandler{service: service, reservations: reservations}
}

// Register mounts the public catalogue routes; write routes sit behind RequireIdentity.
func (h *ListingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/availability", h.availability)

	authed := router.Group("", RequireIdentity())
	authed.POST("", h.create)
	authed.PATCH("/:id/status", h.toggleStatus)
	authed.DELETE("/:id", h.delete)
}

func (h *ListingHandler) list(c *gin.Context) {
	filter := repository.ListingFilter{
		OwnerID: c.Query("owner_id"),
		Brand:   c.Query("brand"),
		Model:   c.Query("model"),
		Status:  domain.ListingStatus(c.Query("status")),
	}
	if year := c.Query("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		filter.Year = y
	}
	if offer := c.Query("offer"); offer != "" {
		v, err := strconv.ParseBool(offer)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer"})
			return
		}
		filter.Offer = &v
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ListingHandler) get(c *gin.Context) {
	listing, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) availability(c *gin.Context) {
	start, err := time.Parse(domain.DateLayout, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(domain.DateLayout, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
		return
	}

	result, err := h.reservations.CheckAvailability(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ListingHandler) create(c *gin.Context) {
	var input listings.CreateListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.service.Create(c.Request.Context(), identityFrom(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *ListingHandler) toggleStatus(c *gin.Context) {
	listing, err := h.service.ToggleStatus(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), identityFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
