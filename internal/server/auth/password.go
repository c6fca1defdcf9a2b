package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// bcryptCost is lowered in tests.
var bcryptCost = 12

// HashPassword returns a bcrypt digest of password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPassword reports whether password matches the bcrypt digest.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("typicaltools-dummy-password")
	return h
})

// SpendCheckTime runs a comparison against a throwaway digest, so a login
// for an unknown username costs about as much as a wrong password.
func SpendCheckTime(password string) {
	_ = CheckPassword(password, dummyHash())
}
