package cache

import (
	"testing"
	"time"

	"cryptoquote-service/internal/domain"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func sampleFee() domain.FeeQuote {
	return domain.FeeQuote{Symbol: "BTC_USDT", FeePercent: "1.5", MinAmount: "0.001", MaxAmount: "10.0"}
}

func Test_Memory_PutGetRoundTrip(t *testing.T) {
	t.Parallel()
	clk := newClock()
	m := NewMemory(10*time.Minute, WithClock(clk))

	m.Put("BTC_USDT", sampleFee())
	got, ok := m.Get("BTC_USDT")
	require.True(t, ok)
	require.Equal(t, sampleFee(), got)
}

func Test_Memory_TTLBoundary(t *testing.T) {
	t.Parallel()
	clk := newClock()
	ttl := 10 * time.Minute
	m := NewMemory(ttl, WithClock(clk))
	m.Put("BTC_USDT", sampleFee())

	clk.Advance(ttl - time.Millisecond)
	_, ok := m.Get("BTC_USDT")
	require.True(t, ok)

	clk.Advance(2 * time.Millisecond)
	_, ok = m.Get("BTC_USDT")
	require.False(t, ok)
}

func Test_Memory_EntriesAreIndependent(t *testing.T) {
	t.Parallel()
	clk := newClock()
	m := NewMemory(10*time.Minute, WithClock(clk))
	m.Put("BTC_USDT", sampleFee())

	clk.Advance(8 * time.Minute)
	eth := sampleFee()
	eth.Symbol = "ETH_USDT"
	m.Put("ETH_USDT", eth)

	clk.Advance(3 * time.Minute)
	_, ok := m.Get("BTC_USDT")
	require.False(t, ok)
	_, ok = m.Get("ETH_USDT")
	require.True(t, ok)
}

func Test_Memory_PatchLive_NeverCreates(t *testing.T) {
	t.Parallel()
	m := NewMemory(10*time.Minute, WithClock(newClock()))

	m.PatchLive("X", "2.0")
	_, ok := m.Get("X")
	require.False(t, ok)
}

func Test_Memory_PatchLive_KeepsEntryAge(t *testing.T) {
	t.Parallel()
	clk := newClock()
	ttl := 10 * time.Minute
	m := NewMemory(ttl, WithClock(clk))
	m.Put("BTC_USDT", sampleFee())

	clk.Advance(9 * time.Minute)
	m.PatchLive("BTC_USDT", "2.0")

	got, ok := m.Get("BTC_USDT")
	require.True(t, ok)
	require.Equal(t, "2.0", got.FeePercent)
	require.Equal(t, "0.001", got.MinAmount)

	// The patch did not reset the TTL clock: the entry still expires on
	// the polled schedule.
	clk.Advance(90 * time.Second)
	_, ok = m.Get("BTC_USDT")
	require.False(t, ok)
}

func Test_Memory_PutReplacesWholesale(t *testing.T) {
	t.Parallel()
	clk := newClock()
	m := NewMemory(10*time.Minute, WithClock(clk))
	m.Put("BTC_USDT", sampleFee())
	m.PatchLive("BTC_USDT", "2.0")

	fresh := sampleFee()
	fresh.FeePercent = "0.9"
	m.Put("BTC_USDT", fresh)

	got, ok := m.Get("BTC_USDT")
	require.True(t, ok)
	require.Equal(t, "0.9", got.FeePercent)
}
