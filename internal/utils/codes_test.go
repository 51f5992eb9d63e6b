package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		assert.Len(t, otp, 6)
		for _, r := range otp {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[otp] = true
	}
	// 50 draws with all six digits colliding would mean a broken RNG.
	assert.Greater(t, len(seen), 1)
}

func TestFormatReferralCode(t *testing.T) {
	assert.Equal(t, "NOO0001", FormatReferralCode(1))
	assert.Equal(t, "NOO0042", FormatReferralCode(42))
	assert.Equal(t, "NOO9999", FormatReferralCode(9999))
	// Past four digits the number keeps growing rather than wrapping.
	assert.Equal(t, "NOO10000", FormatReferralCode(10000))
}

func TestNormalizeRedemptionCode(t *testing.T) {
	assert.Equal(t, "SAVE20", NormalizeRedemptionCode("  save20 "))
	assert.Equal(t, "A-B_C1", NormalizeRedemptionCode("a-b_c1"))
}

func TestValidRedemptionCode(t *testing.T) {
	valid := []string{"SAVE", "SAVE20", "A-B_C1", "ABCDEFGHIJKLMNOPQRST"}
	for _, code := range valid {
		assert.True(t, ValidRedemptionCode(code), code)
	}
	invalid := []string{"", "ABC", "save20", "HAS SPACE", "TOO-LONG-CODE-FOR-THE-COLUMN", "BAD!"}
	for _, code := range invalid {
		assert.False(t, ValidRedemptionCode(code), code)
	}
}
