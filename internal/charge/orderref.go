package charge

import "github.com/google/uuid"

// NewOrderRef produces an opaque order reference unique with overwhelming
// probability. uuid draws from crypto/rand, so references are not guessable
// from a counter or timestamp.
func NewOrderRef() string {
	return "order-" + uuid.NewString()
}
