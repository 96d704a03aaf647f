package listings

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/google/uuid"
)

type ListingUseCase interface {
	Create(ctx context.Context, owner domain.Identity, input CreateListingInput) (*domain.Listing, error)
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, error)
	ToggleStatus(ctx context.Context, actor domain.Identity, id string) (*domain.Listing, error)
	Delete(ctx context.Context, actor domain.Identity, id string) error
}

type ListingCache interface {
	GetListings(ctx context.Context) ([]domain.Listing, error)
	SetListings(ctx context.Context, listings []domain.Listing) error
	InvalidateListings(ctx context.Context) error
}

type CreateListingInput struct {
	Brand                string `json:"brand"`
	Model                string `json:"model"`
	Year                 int    `json:"year"`
	Seats                int    `json:"seats"`
	DailyPriceCents      int64  `json:"daily_price_cents"`
	Offer                bool   `json:"offer"`
	DiscountedPriceCents int64  `json:"discounted_price_cents"`
}

type ListingService struct {
	repo  repository.ListingRepository
	cache ListingCache
}

func NewListingService(repo repository.ListingRepository, cache ListingCache) *ListingService {
	return &ListingService{repo: repo, cache: cache}
}

func (s *ListingService) Create(ctx context.Context, owner domain.Identity, input CreateListingInput) (*domain.Listing, error) {
	if owner.UserID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		ID:                   uuid.NewString(),
		OwnerID:              owner.UserID,
		Brand:                strings.TrimSpace(input.Brand),
		Model:                strings.TrimSpace(input.Model),
		Year:                 input.Year,
		Seats:                input.Seats,
		DailyPriceCents:      input.DailyPriceCents,
		Offer:                input.Offer,
		DiscountedPriceCents: input.DiscountedPriceCents,
		Status:               domain.ListingStatusAvailable,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return listing, nil
}

func (s *ListingService) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List serves the unfiltered catalogue from cache; filtered queries go to the store.
func (s *ListingService) List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, error) {
	if !filter.Empty() || s.cache == nil {
		return s.repo.List(ctx, filter)
	}

	if cached, err := s.cache.GetListings(ctx); err == nil && cached != nil {
		return cached, nil
	}

	listings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetListings(ctx, listings)
	return listings, nil
}

func (s *ListingService) ToggleStatus(ctx context.Context, actor domain.Identity, id string) (*domain.Listing, error) {
	current, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status.Toggle())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *ListingService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ListingService) authorize(ctx context.Context, actor domain.Identity, id string) (*domain.Listing, error) {
	listing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && listing.OwnerID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	return listing, nil
}

func (s *ListingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		log.Printf("invalidate listings cache: %v", err)
	}
}

func (in CreateListingInput) validate() error {
	if strings.TrimSpace(in.Brand) == "" {
		return domain.NewValidationError("brand", "is required")
	}
	if strings.TrimSpace(in.Model) == "" {
		return domain.NewValidationError("model", "is required")
	}
	if in.Year < 1900 || in.Year > time.Now().Year()+1 {
		return domain.NewValidationError("year", "is out of range")
	}
	if in.Seats < 0 {
		return domain.NewValidationError("seats", "must not be negative")
	}
	if in.DailyPriceCents <= 0 {
		return domain.NewValidationError("daily_price_cents", "must be positive")
	}
	if in.Offer && (in.DiscountedPriceCents <= 0 || in.DiscountedPriceCents >= in.DailyPriceCents) {
		return domain.NewValidationError("discounted_price_cents", "must be positive and below the regular price")
	}
	return nil
}

var _ ListingUseCase = (*ListingService)(nil)
