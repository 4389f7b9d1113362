package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Cost is fixed so every stored hash has the same work factor.
const Cost = 10

func Hash(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), Cost)
}

// Verify reports whether plain matches hash. Malformed hashes never match.
func Verify(plain string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}
