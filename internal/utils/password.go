package utils

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
)

// MinPasswordLength is enforced on registration and password change.
const MinPasswordLength = 6

// HashPassword returns bcrypt hash using the given cost. Out-of-range costs
// fall back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", errs.Wrap(err, "hash password")
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
