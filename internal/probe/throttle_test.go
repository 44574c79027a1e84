package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestThrottleFirstRequestDoesNotWait(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	th := NewThrottle(250*time.Millisecond, clock)

	require.NoError(t, th.Wait(context.Background()))
	assert.Empty(t, clock.sleeps)
}

func TestThrottleSleepsRemainder(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	th := NewThrottle(250*time.Millisecond, clock)

	th.Done()
	clock.advance(100 * time.Millisecond)
	require.NoError(t, th.Wait(context.Background()))
	th.Done()

	clock.advance(300 * time.Millisecond)
	require.NoError(t, th.Wait(context.Background()))
	th.Done()

	require.NoError(t, th.Wait(context.Background()))

	assert.Equal(t, []time.Duration{150 * time.Millisecond, 250 * time.Millisecond}, clock.sleeps)
}

func TestThrottleCancelled(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	th := NewThrottle(time.Second, clock)
	th.Done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, th.Wait(ctx), context.Canceled)
}

func TestSystemClockSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SystemClock.Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuardBlocked(t *testing.T) {
	g, err := NewGuard(DefaultBlockedRanges())
	require.NoError(t, err)

	tests := []struct {
		ip      string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.0.1", true},
		{"169.254.169.254", true},
		{"::1", true},
		{"93.184.216.34", false},
		{"2606:2800:220:1:248:1893:25c8:1946", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.blocked, g.Blocked(net.ParseIP(tt.ip)))
		})
	}

	assert.ErrorIs(t, g.Control("tcp", "127.0.0.1:443", nil), ErrBlockedAddress)
	assert.NoError(t, g.Control("tcp", "93.184.216.34:443", nil))
}

func TestNewGuardInvalidCIDR(t *testing.T) {
	_, err := NewGuard([]string{"not-a-cidr"})
	assert.Error(t, err)
}
