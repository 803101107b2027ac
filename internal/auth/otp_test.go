package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPGenerator_Generate(t *testing.T) {
	gen := NewOTPGenerator(300 * time.Second)

	code, err := gen.Generate()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.True(t, ValidCodeFormat(code))
}

func TestOTPGenerator_FreshSecretPerCode(t *testing.T) {
	gen := NewOTPGenerator(300 * time.Second)

	// Each call draws a new random secret, so collisions within one step
	// window are possible but repeated identical codes are not expected.
	seen := make(map[string]int)
	for i := 0; i < 20; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		seen[code]++
	}
	assert.Greater(t, len(seen), 1)
}

func TestValidCodeFormat(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidCodeFormat(tc.code), "code=%q", tc.code)
	}
}
