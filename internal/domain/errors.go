package domain

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrInvalidDateRange          = errors.New("invalid date range")
	ErrInvalidPaymentOutcome     = errors.New("payment outcome must be paid or deferred")
	ErrPaymentDeclined           = errors.New("payment declined")
	ErrDateRangeUnavailable      = errors.New("date range is not available")
	ErrListingUnavailable        = errors.New("listing is not available")
	ErrInvalidTransition         = errors.New("invalid reservation status transition")
	ErrForbidden                 = errors.New("forbidden")
	ErrConfirmationCodeTaken     = errors.New("confirmation code already in use")
	ErrConfirmationCodeExhausted = errors.New("could not issue a free confirmation code")
	ErrListingLocked             = errors.New("listing is being booked by another request")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err should be surfaced as a client input error.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidPaymentOutcome)
}
