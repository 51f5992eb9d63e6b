package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// redemptionCodePattern matches valid coupon redemption codes: 4 to 20
// upper-case letters, digits, underscores or hyphens.
var redemptionCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{4,20}$`)

// GenerateOTP returns a random 6-digit one-time password as a string,
// zero-padded, using crypto/rand.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// FormatReferralCode renders the nth referral code handed out by the
// platform, e.g. 1 -> "NOO0001". The sequence number comes from the
// counters table so codes never collide.
func FormatReferralCode(n uint64) string {
	return fmt.Sprintf("NOO%04d", n)
}

// NormalizeRedemptionCode upper-cases and trims a redemption code the
// way the coupons table stores it.
func NormalizeRedemptionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRedemptionCode reports whether a normalized redemption code is
// well formed.
func ValidRedemptionCode(code string) bool {
	return redemptionCodePattern.MatchString(code)
}
