package code

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumericLengthAndDigits(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		c, err := NewNumeric(n)
		require.NoError(t, err)
		require.Len(t, c, n)
		for _, r := range c {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
		}
	}
}

func TestNewNumericRejectsBadLength(t *testing.T) {
	_, err := NewNumeric(0)
	assert.Error(t, err)
	_, err = NewNumeric(19)
	assert.Error(t, err)
}

func TestNewNumericVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := NewNumeric(6)
		require.NoError(t, err)
		seen[c] = true
	}
	// 50 draws from a million-value space colliding down to one value
	// would mean a broken generator.
	assert.Greater(t, len(seen), 1)
}
