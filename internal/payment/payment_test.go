package payment

import (
	"testing"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	outcome, err := Outcome(nil)
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentOutcomeDeferred, outcome)

	outcome, err = Outcome(&Result{Status: StatusApproved, TransactionID: "TXN_1", CapturedAmountCents: 500})
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentOutcomePaid, outcome)

	_, err = Outcome(&Result{Status: StatusError, FailureReason: "Insufficient funds"})
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)
	assert.ErrorContains(t, err, "Insufficient funds")

	_, err = Outcome(&Result{Status: "pending"})
	assert.True(t, domain.IsValidation(err))
}
