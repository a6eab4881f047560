package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewNumeric generates a cryptographically random n-digit code, zero-padded.
func NewNumeric(n int) (string, error) {
	if n < 1 || n > 18 {
		return "", fmt.Errorf("code length %d out of range", n)
	}
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
