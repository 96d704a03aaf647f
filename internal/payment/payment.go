// Package payment translates results reported by the embedded payment widget
// into booking outcomes.
package payment

import (
	"fmt"
	"log"

	"github.com/Domenick1991/carrental/internal/domain"
)

type Status string

const (
	StatusApproved Status = "approved"
	StatusError    Status = "error"
)

// Result is what the payment widget reports after the renter interacts with it.
type Result struct {
	Status              Status `json:"status"`
	TransactionID       string `json:"transaction_id"`
	CapturedAmountCents int64  `json:"captured_amount_cents"`
	FailureReason       string `json:"failure_reason,omitempty"`
}

// Outcome maps a widget result to a booking outcome. A nil result means the renter
// chose to pay later. The captured amount is informational and is not compared
// with the booked total.
func Outcome(result *Result) (domain.PaymentOutcome, error) {
	if result == nil {
		return domain.PaymentOutcomeDeferred, nil
	}

	switch result.Status {
	case StatusApproved:
		log.Printf("payment %s approved, captured %d cents", result.TransactionID, result.CapturedAmountCents)
		return domain.PaymentOutcomePaid, nil
	case StatusError:
		if result.FailureReason != "" {
			return "", fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, result.FailureReason)
		}
		return "", domain.ErrPaymentDeclined
	default:
		return "", domain.NewValidationError("payment.status", fmt.Sprintf("unknown payment status %q", result.Status))
	}
}
