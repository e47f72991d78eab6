package auth

import (
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// dummyHash is compared against when the account does not exist so that a
// failed login costs the same whether the email or the password was wrong.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-timing-equaliser"), bcryptCost)

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	return string(hash), err
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnPasswordCheck spends the same work as CheckPassword without a real hash.
func BurnPasswordCheck(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
