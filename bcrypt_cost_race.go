//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// Hashing at the production cost factor under the race detector blows past
// test timeouts, so race builds fall back to the library default.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
