package auth

import "golang.org/x/crypto/bcrypt"

const bcryptCost = 12

// HashPassword produces the bcrypt hash stored in
// MINDFORGE_AUTH_PASSWORD_HASH. The mindforgectl hash-password command
// calls this.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ComparePassword checks a login attempt against the stored hash.
func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
