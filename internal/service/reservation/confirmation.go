package reservation

import (
	"math/rand"

	"github.com/Domenick1991/carrental/internal/domain"
)

// CodeSource yields candidate confirmation codes.
type CodeSource func() int

// RandomCodes draws uniformly from [10000, 99999].
func RandomCodes() int {
	return domain.MinConfirmationCode + rand.Intn(domain.MaxConfirmationCode-domain.MinConfirmationCode+1)
}
