// Package password wraps bcrypt hashing for credential verification.
package password

import "golang.org/x/crypto/bcrypt"

// DefaultCost matches the cost factor used across the platform.
const DefaultCost = 10

// dummyHash is a precomputed bcrypt hash of an unguessable throwaway value.
// It is compared against on identity-lookup misses so that "unknown user"
// and "wrong password" take the same time to answer.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of the plaintext password.
func (h *Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches the stored hash.
func (h *Hasher) Verify(plain string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// DummyCompare burns the same CPU cost as a real verification against a
// fixed hash. The result is discarded; callers invoke it purely to equalize
// response latency on identity-lookup misses.
func (h *Hasher) DummyCompare(plain string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}
