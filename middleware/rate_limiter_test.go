package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiredBlocksDropsAllEndpointLimiters(t *testing.T) {
	rl := NewRateLimiter()

	rl.getLimiter("1.2.3.4", "/webhooks/billing/invoice-paid")
	rl.getLimiter("1.2.3.4", "/api/partners/:id/conversion-analytics")
	rl.getLimiter("5.6.7.8", "/webhooks/billing/invoice-paid")

	rl.mu.Lock()
	rl.blockedIPs["1.2.3.4"] = time.Now().Add(-10 * time.Minute)
	rl.mu.Unlock()

	rl.sweepExpiredBlocks(time.Now())

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	_, stillBlocked := rl.blockedIPs["1.2.3.4"]
	assert.False(t, stillBlocked, "expired block should be lifted")
	for key := range rl.ips {
		assert.NotContains(t, key, "1.2.3.4", "limiter state for the unblocked IP should be gone")
	}
	_, otherKept := rl.ips["5.6.7.8/webhooks/billing/invoice-paid"]
	assert.True(t, otherKept, "other IPs keep their limiters")
}

func TestSweepExpiredBlocksKeepsActiveBlocks(t *testing.T) {
	rl := NewRateLimiter()

	rl.getLimiter("1.2.3.4", "/webhooks/billing/invoice-paid")

	rl.mu.Lock()
	rl.blockedIPs["1.2.3.4"] = time.Now().Add(-time.Minute)
	rl.mu.Unlock()

	rl.sweepExpiredBlocks(time.Now())

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	_, blocked := rl.blockedIPs["1.2.3.4"]
	require.True(t, blocked, "block inside the penalty window must survive the sweep")
	_, limiterKept := rl.ips["1.2.3.4/webhooks/billing/invoice-paid"]
	assert.True(t, limiterKept)
}

func TestSweepDoesNotMatchLongerIPPrefixes(t *testing.T) {
	rl := NewRateLimiter()

	rl.getLimiter("1.2.3.4", "/webhooks/billing/invoice-paid")
	rl.getLimiter("1.2.3.40", "/webhooks/billing/invoice-paid")

	rl.mu.Lock()
	rl.blockedIPs["1.2.3.4"] = time.Now().Add(-10 * time.Minute)
	rl.mu.Unlock()

	rl.sweepExpiredBlocks(time.Now())

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	_, kept := rl.ips["1.2.3.40/webhooks/billing/invoice-paid"]
	assert.True(t, kept, "1.2.3.40 is a different IP and must keep its limiter")
}
