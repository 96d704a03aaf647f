package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/listings"
	"github.com/Domenick1991/carrental/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockListingUseCase is a mock implementation of listings.ListingUseCase
type MockListingUseCase struct {
	mock.Mock
}

func (m *MockListingUseCase) Create(ctx context.Context, owner domain.Identity, input listings.CreateListingInput) (*domain.Listing, error) {
	args := m.Called(ctx, owner, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingUseCase) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingUseCase) List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Listing), args.Error(1)
}

func (m *MockListingUseCase) ToggleStatus(ctx context.Context, actor domain.Identity, id string) (*domain.Listing, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingUseCase) Delete(ctx context.Context, actor domain.Identity, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func TestListingHandler_list(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, &MockReservationUseCase{})
	c, w := newTestContext("GET", "/api/v1/listings?brand=kia&year=2021", nil)

	expected := []domain.Listing{{ID: testListingID, Brand: "Kia", Year: 2021}}
	mockService.On("List", c.Request.Context(), repository.ListingFilter{Brand: "kia", Year: 2021}).Return(expected, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []domain.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, expected, response)
	mockService.AssertExpectations(t)
}

func TestListingHandler_listOffers(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, &MockReservationUseCase{})
	c, w := newTestContext("GET", "/api/v1/listings?offer=true", nil)

	onOffer := true
	expected := []domain.Listing{{ID: testListingID, Brand: "Kia", Offer: true, DiscountedPriceCents: 9000}}
	mockService.On("List", c.Request.Context(), repository.ListingFilter{Offer: &onOffer}).Return(expected, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)

	c, w = newTestContext("GET", "/api/v1/listings?offer=maybe", nil)
	handler.list(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandler_listBadYear(t *testing.T) {
	handler := NewListingHandler(&MockListingUseCase{}, &MockReservationUseCase{})
	c, w := newTestContext("GET", "/api/v1/listings?year=soon", nil)

	handler.list(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandler_availability(t *testing.T) {
	mockReservations := &MockReservationUseCase{}
	handler := NewListingHandler(&MockListingUseCase{}, mockReservations)
	c, w := newTestContext("GET", "/api/v1/listings/"+testListingID+"/availability?start=2024-06-06&end=2024-06-07", nil)
	c.Params = gin.Params{{Key: "id", Value: testListingID}}

	start := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	rng, err := domain.NewDateRange(start, end)
	require.NoError(t, err)
	mockReservations.On("CheckAvailability", c.Request.Context(), testListingID, start, end).
		Return(&reservation.Availability{ListingID: testListingID, Range: rng, Available: false}, nil)

	handler.availability(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":false`)
	mockReservations.AssertExpectations(t)
}

func TestListingHandler_availabilityBadDates(t *testing.T) {
	handler := NewListingHandler(&MockListingUseCase{}, &MockReservationUseCase{})

	for _, target := range []string{
		"/api/v1/listings/x/availability?end=2024-06-07",
		"/api/v1/listings/x/availability?start=2024-06-06&end=tomorrow",
	} {
		c, w := newTestContext("GET", target, nil)
		handler.availability(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestListingHandler_create(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, &MockReservationUseCase{})
	c, w := newTestContext("POST", "/api/v1/listings", []byte(`{"brand":"Mazda","model":"3","year":2022,"daily_price_cents":18000}`))

	input := listings.CreateListingInput{Brand: "Mazda", Model: "3", Year: 2022, DailyPriceCents: 18000}
	mockService.On("Create", c.Request.Context(), testRenter, input).
		Return(&domain.Listing{ID: testListingID, Brand: "Mazda", Status: domain.ListingStatusAvailable}, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}

func TestListingHandler_toggleForbidden(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, &MockReservationUseCase{})
	c, w := newTestContext("PATCH", "/api/v1/listings/"+testListingID+"/status", nil)
	c.Params = gin.Params{{Key: "id", Value: testListingID}}

	mockService.On("ToggleStatus", c.Request.Context(), testRenter, testListingID).Return(nil, domain.ErrForbidden)

	handler.toggleStatus(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockService.AssertExpectations(t)
}

func TestListingHandler_delete(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, &MockReservationUseCase{})
	c, w := newTestContext("DELETE", "/api/v1/listings/"+testListingID, nil)
	c.Params = gin.Params{{Key: "id", Value: testListingID}}

	mockService.On("Delete", c.Request.Context(), testRenter, testListingID).Return(nil)

	handler.delete(c)

	// c.Status does not flush headers on its own outside the engine.
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	mockService.AssertExpectations(t)
}

func TestRouter_listingsWriteRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{}, &MockListingUseCase{}, &MockReservationUseCase{}, &MockStatsUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/listings", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
