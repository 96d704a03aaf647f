package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/google/uuid"
)

// insertAttempts bounds retries when a freshly issued confirmation code is claimed
// by a concurrent booking between the existence check and the insert.
const insertAttempts = 3

type ReservationUseCase interface {
	CheckAvailability(ctx context.Context, listingID string, start, end time.Time) (*Availability, error)
	IssueConfirmationCode(ctx context.Context) (int, error)
	SubmitBooking(ctx context.Context, input SubmitBookingInput) (*domain.Reservation, error)
	ConfirmReservation(ctx context.Context, actor domain.Identity, id string) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, actor domain.Identity, id string) (*domain.Reservation, error)
	FinishExpired(ctx context.Context, now time.Time) ([]domain.Reservation, error)
	GetByConfirmationCode(ctx context.Context, actor domain.Identity, code int) (*domain.Reservation, error)
	ListReservations(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error)
	ListRenterReservations(ctx context.Context, actor domain.Identity, filter repository.ReservationFilter) ([]domain.Reservation, error)
	DetectConflicts(ctx context.Context, listingID string) ([]Conflict, error)
}

type Locker interface {
	AcquireListingLock(ctx context.Context, listingID, token string, ttl time.Duration) (bool, error)
	ReleaseListingLock(ctx context.Context, listingID, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Availability is the answer to a date-range check. Conflicts lists the booked ranges
// that intersect the requested one so a date picker can disable them.
type Availability struct {
	ListingID string             `json:"listing_id"`
	Range     domain.DateRange   `json:"range"`
	Available bool               `json:"available"`
	Conflicts []domain.DateRange `json:"conflicts"`
}

// Conflict is a pair of active reservations on one listing whose dates overlap.
type Conflict struct {
	First  domain.Reservation `json:"first"`
	Second domain.Reservation `json:"second"`
}

type SubmitBookingInput struct {
	ListingID string
	Renter    domain.Identity
	StartDate time.Time
	EndDate   time.Time
	Outcome   domain.PaymentOutcome
}

type ReservationService struct {
	reservations         repository.ReservationRepository
	listings             repository.ListingRepository
	locker               Locker
	producer             Producer
	topic                string
	lockTTL              time.Duration
	confirmationAttempts int
	codes                CodeSource
}

type ReservationServiceOption func(*ReservationService)

func WithCodeSource(codes CodeSource) ReservationServiceOption {
	return func(s *ReservationService) {
		s.codes = codes
	}
}

func WithConfirmationAttempts(n int) ReservationServiceOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.confirmationAttempts = n
		}
	}
}

func NewReservationService(
	reservations repository.ReservationRepository,
	listings repository.ListingRepository,
	locker Locker,
	producer Producer,
	topic string,
	lockTTL time.Duration,
	opts ...ReservationServiceOption,
) *ReservationService {
	service := &ReservationService{
		reservations:         reservations,
		listings:             listings,
		locker:               locker,
		producer:             producer,
		topic:                topic,
		lockTTL:              lockTTL,
		confirmationAttempts: 50,
		codes:                RandomCodes,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *ReservationService) CheckAvailability(ctx context.Context, listingID string, start, end time.Time) (*Availability, error) {
	rng, err := domain.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	if err := validID("listing_id", listingID); err != nil {
		return nil, err
	}
	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		return nil, err
	}
	return s.availability(ctx, listingID, rng)
}

func (s *ReservationService) availability(ctx context.Context, listingID string, rng domain.DateRange) (*Availability, error) {
	active, err := s.reservations.ListActiveByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}

	result := &Availability{ListingID: listingID, Range: rng, Available: true, Conflicts: []domain.DateRange{}}
	for _, r := range active {
		if rng.Overlaps(r.Range()) {
			result.Available = false
			result.Conflicts = append(result.Conflicts, r.Range())
		}
	}
	return result, nil
}

// IssueConfirmationCode draws codes until one is unused at the time of the check.
func (s *ReservationService) IssueConfirmationCode(ctx context.Context) (int, error) {
	for i := 0; i < s.confirmationAttempts; i++ {
		code := s.codes()
		exists, err := s.reservations.ConfirmationCodeExists(ctx, code)
		if err != nil {
			return 0, fmt.Errorf("check confirmation code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return 0, domain.ErrConfirmationCodeExhausted
}

func (s *ReservationService) SubmitBooking(ctx context.Context, input SubmitBookingInput) (*domain.Reservation, error) {
	if err := validateRenter(input.Renter); err != nil {
		return nil, err
	}
	if err := validID("listing_id", input.ListingID); err != nil {
		return nil, err
	}
	rng, err := domain.NewDateRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	status, err := domain.StatusForOutcome(input.Outcome)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != domain.ListingStatusAvailable {
		return nil, domain.ErrListingUnavailable
	}

	if s.locker != nil {
		token := uuid.NewString()
		ok, err := s.locker.AcquireListingLock(ctx, listing.ID, token, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire listing lock: %w", err)
		}
		if !ok {
			return nil, domain.ErrListingLocked
		}
		defer func() {
			if err := s.locker.ReleaseListingLock(context.WithoutCancel(ctx), listing.ID, token); err != nil {
				log.Printf("release listing lock %s: %v", listing.ID, err)
			}
		}()
	}

	availability, err := s.availability(ctx, listing.ID, rng)
	if err != nil {
		return nil, err
	}
	if !availability.Available {
		return nil, domain.ErrDateRangeUnavailable
	}

	res := &domain.Reservation{
		ID:              uuid.NewString(),
		ListingID:       listing.ID,
		RenterID:        input.Renter.UserID,
		StartDate:       rng.Start,
		EndDate:         rng.End,
		Status:          status,
		TotalPriceCents: int64(rng.Days()) * listing.EffectiveDailyPrice(),
		Email:           input.Renter.Email,
		Name:            input.Renter.Name,
		Phone:           input.Renter.Phone,
		Make:            listing.Brand,
		Model:           listing.Model,
	}

	for attempt := 1; ; attempt++ {
		code, err := s.IssueConfirmationCode(ctx)
		if err != nil {
			return nil, err
		}
		res.ConfirmationCode = code

		err = s.reservations.CreateIfAvailable(ctx, res)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrConfirmationCodeTaken) && attempt < insertAttempts {
			log.Printf("confirmation code %d taken concurrently, reissuing", code)
			continue
		}
		return nil, err
	}

	if err := s.publish(ctx, kafka.EventReservationCreated, res); err != nil {
		log.Printf("WARNING: failed to publish %s for reservation %s: %v", kafka.EventReservationCreated, res.ID, err)
	}
	return res, nil
}

// ConfirmReservation approves a pending request. The listing is re-checked for overlaps,
// so a pending request that lost its dates to a paid booking stays pending.
func (s *ReservationService) ConfirmReservation(ctx context.Context, actor domain.Identity, id string) (*domain.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := validID("id", id); err != nil {
		return nil, err
	}

	updated, err := s.reservations.Activate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, kafka.EventReservationActivated, updated); err != nil {
		log.Printf("WARNING: failed to publish %s for reservation %s: %v", kafka.EventReservationActivated, updated.ID, err)
	}
	return updated, nil
}

func (s *ReservationService) CancelReservation(ctx context.Context, actor domain.Identity, id string) (*domain.Reservation, error) {
	if err := validID("id", id); err != nil {
		return nil, err
	}
	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && current.RenterID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	if !current.Status.CanTransition(domain.ReservationStatusCanceled, actor.IsAdmin()) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, domain.ReservationStatusCanceled)
	}

	updated, err := s.reservations.UpdateStatus(ctx, id, current.Status, domain.ReservationStatusCanceled)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, kafka.EventReservationCanceled, updated); err != nil {
		log.Printf("WARNING: failed to publish %s for reservation %s: %v", kafka.EventReservationCanceled, updated.ID, err)
	}
	return updated, nil
}

// FinishExpired marks active reservations whose last day is before now's calendar day.
func (s *ReservationService) FinishExpired(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	finished, err := s.reservations.FinishEndedBefore(ctx, today)
	if err != nil {
		return nil, err
	}
	for i := range finished {
		if err := s.publish(ctx, kafka.EventReservationFinished, &finished[i]); err != nil {
			log.Printf("WARNING: failed to publish %s for reservation %s: %v", kafka.EventReservationFinished, finished[i].ID, err)
		}
	}
	return finished, nil
}

func (s *ReservationService) GetByConfirmationCode(ctx context.Context, actor domain.Identity, code int) (*domain.Reservation, error) {
	if code < domain.MinConfirmationCode || code > domain.MaxConfirmationCode {
		return nil, domain.NewValidationError("confirmation_code", "must be a 5-digit number")
	}
	res, err := s.reservations.GetByConfirmationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && res.RenterID != actor.UserID {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

func (s *ReservationService) ListReservations(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	filter.PendingFirst = true
	return s.reservations.List(ctx, filter)
}

func (s *ReservationService) ListRenterReservations(ctx context.Context, actor domain.Identity, filter repository.ReservationFilter) ([]domain.Reservation, error) {
	if actor.UserID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	filter.RenterID = actor.UserID
	filter.PendingFirst = false
	return s.reservations.List(ctx, filter)
}

// DetectConflicts reports overlapping active reservations on a listing.
func (s *ReservationService) DetectConflicts(ctx context.Context, listingID string) ([]Conflict, error) {
	if err := validID("listing_id", listingID); err != nil {
		return nil, err
	}
	active, err := s.reservations.ListActiveByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	sort.Slice(active, func(i, j int) bool { return active[i].StartDate.Before(active[j].StartDate) })

	conflicts := make([]Conflict, 0)
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			if active[j].StartDate.After(active[i].EndDate) {
				break
			}
			conflicts = append(conflicts, Conflict{First: active[i], Second: active[j]})
		}
	}
	return conflicts, nil
}

func (s *ReservationService) publish(ctx context.Context, eventType string, res *domain.Reservation) error {
	if s.producer == nil || s.topic == "" {
		return nil
	}
	event := kafka.ReservationEvent{
		Type:             eventType,
		ReservationID:    res.ID,
		ListingID:        res.ListingID,
		RenterID:         res.RenterID,
		ConfirmationCode: res.ConfirmationCode,
		Status:           string(res.Status),
		StartDate:        res.StartDate,
		EndDate:          res.EndDate,
		TotalPriceCents:  res.TotalPriceCents,
		OccurredAt:       time.Now().UTC(),
	}
	return s.producer.Publish(ctx, s.topic, res.ListingID, event)
}

func validateRenter(renter domain.Identity) error {
	if renter.UserID == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	if strings.TrimSpace(renter.Email) == "" {
		return domain.NewValidationError("email", "is required")
	}
	if strings.TrimSpace(renter.Phone) == "" {
		return domain.NewValidationError("phone", "no phone number on profile")
	}
	return nil
}

func validID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewValidationError(field, "must be a UUID")
	}
	return nil
}

var _ ReservationUseCase = (*ReservationService)(nil)
