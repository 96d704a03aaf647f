package domain

import "time"

type ListingStatus string

const (
	ListingStatusAvailable    ListingStatus = "available"
	ListingStatusNotAvailable ListingStatus = "not-available"
)

// Toggle flips between available and not-available.
func (s ListingStatus) Toggle() ListingStatus {
	if s == ListingStatusAvailable {
		return ListingStatusNotAvailable
	}
	return ListingStatusAvailable
}

type Listing struct {
	ID                   string        `json:"id"`
	OwnerID              string        `json:"owner_id"`
	Brand                string        `json:"brand"`
	Model                string        `json:"model"`
	Year                 int           `json:"year"`
	Seats                int           `json:"seats"`
	DailyPriceCents      int64         `json:"daily_price_cents"`
	Offer                bool          `json:"offer"`
	DiscountedPriceCents int64         `json:"discounted_price_cents"`
	Status               ListingStatus `json:"status"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// EffectiveDailyPrice returns the discounted price while the listing is on offer.
func (l *Listing) EffectiveDailyPrice() int64 {
	if l.Offer && l.DiscountedPriceCents > 0 {
		return l.DiscountedPriceCents
	}
	return l.DailyPriceCents
}
