package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePartnerReferralCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GeneratePartnerReferralCode()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(code, "PTR-"))
		assert.Len(t, code, 10)
		for _, r := range code[4:] {
			ok := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			assert.True(t, ok, "unexpected character %q in %s", r, code)
		}
	}
}
