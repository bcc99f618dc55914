package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidUsername accepts 1-150 letters, digits and @.+-_ (the classic
// username charset), so handles are safe in profile URLs.
func ValidUsername(s string) bool {
	n := 0
	for _, r := range s {
		n++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '@', '.', '+', '-', '_':
			continue
		}
		return false
	}
	return n >= 1 && n <= 150
}

// ValidPassword requires 8-72 bytes; bcrypt ignores anything past 72.
func ValidPassword(s string) bool {
	return len(s) >= 8 && len(s) <= 72
}
