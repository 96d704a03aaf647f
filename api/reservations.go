package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/payment"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	service reservation.ReservationUseCase
}

type submitBookingRequest struct {
	ListingID string          `json:"listing_id" binding:"required"`
	StartDate string          `json:"start_date" binding:"required"`
	EndDate   string          `json:"end_date" binding:"required"`
	Payment   *payment.Result `json:"payment"`
}

type reservationResponse struct {
	ID               string `json:"id"`
	ListingID        string `json:"listing_id"`
	Status           string `json:"status"`
	ConfirmationCode int    `json:"confirmation_code"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	TotalPriceCents  int64  `json:"total_price_cents"`
	Make             string `json:"make"`
	Model            string `json:"model"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	CreatedAt        string `json:"created_at,omitempty"`
}

func NewReservationHandler(service reservation.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// Register expects router to already carry RequireIdentity.
func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.submit)
	router.GET("/mine", h.mine)
	router.GET("/confirmation/:code", h.byConfirmation)
	router.DELETE("/:id", h.cancel)
}

func (h *ReservationHandler) submit(c *gin.Context) {
	var req submitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rng, err := domain.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(c, err)
		return
	}
	outcome, err := payment.Outcome(req.Payment)
	if err != nil {
		writeError(c, err)
		return
	}

	created, err := h.service.SubmitBooking(c.Request.Context(), reservation.SubmitBookingInput{
		ListingID: req.ListingID,
		Renter:    identityFrom(c),
		StartDate: rng.Start,
		EndDate:   rng.End,
		Outcome:   outcome,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(created))
}

func (h *ReservationHandler) mine(c *gin.Context) {
	filter, err := reservationFilterFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.service.ListRenterReservations(c.Request.Context(), identityFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponses(list))
}

func (h *ReservationHandler) byConfirmation(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid confirmation code"})
		return
	}
	res, err := h.service.GetByConfirmationCode(c.Request.Context(), identityFrom(c), code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) cancel(c *gin.Context) {
	res, err := h.service.CancelReservation(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func reservationFilterFromQuery(c *gin.Context) (repository.ReservationFilter, error) {
	filter := repository.ReservationFilter{
		Status: domain.ReservationStatus(c.Query("status")),
		Make:   c.Query("brand"),
		Model:  c.Query("model"),
	}
	if v := c.Query("confirmation"); v != "" {
		code, err := strconv.Atoi(v)
		if err != nil {
			return filter, domain.NewValidationError("confirmation", "must be a number")
		}
		filter.ConfirmationCode = code
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return filter, domain.NewValidationError("start_date", "must be YYYY-MM-DD")
		}
		filter.From = t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return filter, domain.NewValidationError("end_date", "must be YYYY-MM-DD")
		}
		filter.To = t
	}
	if v := c.Query("min_price_cents"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, domain.NewValidationError("min_price_cents", "must be a number")
		}
		filter.MinPriceCents = p
	}
	if v := c.Query("max_price_cents"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, domain.NewValidationError("max_price_cents", "must be a number")
		}
		filter.MaxPriceCents = p
	}
	return filter, nil
}

func toReservationResponse(r *domain.Reservation) reservationResponse {
	resp := reservationResponse{
		ID:               r.ID,
		ListingID:        r.ListingID,
		Status:           string(r.Status),
		ConfirmationCode: r.ConfirmationCode,
		StartDate:        r.StartDate.Format(domain.DateLayout),
		EndDate:          r.EndDate.Format(domain.DateLayout),
		TotalPriceCents:  r.TotalPriceCents,
		Make:             r.Make,
		Model:            r.Model,
		Email:            r.Email,
		Phone:            r.Phone,
	}
	if !r.CreatedAt.IsZero() {
		resp.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

func toReservationResponses(list []domain.Reservation) []reservationResponse {
	out := make([]reservationResponse, 0, len(list))
	for i := range list {
		out = append(out, toReservationResponse(&list[i]))
	}
	return out
}
