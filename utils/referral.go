package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// GeneratePartnerReferralCode generates a referral code for a new partner.
// Format: PTR-{RANDOM} where RANDOM is 6 alphanumeric characters, e.g.
// PTR-ABC123. Uniqueness is enforced by the partners collection index; a
// rare collision surfaces as a duplicate-key error at onboarding and the
// caller retries.
func GeneratePartnerReferralCode() (string, error) {
	// 4 random bytes give 6 characters in unpadded base32.
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = strings.ToUpper(randomStr[:6])
	randomStr = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, randomStr)

	if len(randomStr) < 6 {
		randomStr = randomStr + strings.Repeat("0", 6-len(randomStr))
	}

	return "PTR-" + randomStr, nil
}
