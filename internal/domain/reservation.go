package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending  ReservationStatus = "pending"
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusCanceled ReservationStatus = "canceled"
	ReservationStatusFinished ReservationStatus = "finished"
)

// PaymentOutcome is what the booking flow knows about payment when the request is written.
type PaymentOutcome string

const (
	PaymentOutcomePaid     PaymentOutcome = "paid"
	PaymentOutcomeDeferred PaymentOutcome = "deferred"
)

const (
	MinConfirmationCode = 10000
	MaxConfirmationCode = 99999
)

type Reservation struct {
	ID               string            `json:"id"`
	ListingID        string            `json:"listing_id"`
	RenterID         string            `json:"renter_id"`
	StartDate        time.Time         `json:"start_date"`
	EndDate          time.Time         `json:"end_date"`
	Status           ReservationStatus `json:"status"`
	ConfirmationCode int               `json:"confirmation_code"`
	TotalPriceCents  int64             `json:"total_price_cents"`
	Email            string            `json:"email"`
	Name             string            `json:"name"`
	Phone            string            `json:"phone"`
	Make             string            `json:"make"`
	Model            string            `json:"model"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (r *Reservation) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

func (s ReservationStatus) Terminal() bool {
	return s == ReservationStatusCanceled || s == ReservationStatusFinished
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusActive, ReservationStatusCanceled, ReservationStatusFinished:
		return true
	}
	return false
}

// CanTransition reports whether a reservation may move from s to next.
// Cancelling an active reservation is reserved for admins resolving a double booking.
func (s ReservationStatus) CanTransition(next ReservationStatus, admin bool) bool {
	switch s {
	case ReservationStatusPending:
		return next == ReservationStatusActive || next == ReservationStatusCanceled
	case ReservationStatusActive:
		if next == ReservationStatusFinished {
			return true
		}
		return next == ReservationStatusCanceled && admin
	}
	return false
}

// StatusForOutcome maps a payment outcome to the initial reservation status.
func StatusForOutcome(outcome PaymentOutcome) (ReservationStatus, error) {
	switch outcome {
	case PaymentOutcomePaid:
		return ReservationStatusActive, nil
	case PaymentOutcomeDeferred:
		return ReservationStatusPending, nil
	default:
		return "", ErrInvalidPaymentOutcome
	}
}
