package application

import (
	"context"
	"testing"

	"cryptoquote-service/internal/domain"
	"cryptoquote-service/internal/formula"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*QuoteEngine, *fakeMarket, *fakeFeeCache) {
	t.Helper()
	m := newFakeMarket()
	c := newFakeFeeCache()
	e := NewQuoteEngine(m, c, formula.NewRegistry())
	_, err := e.LoadPairs(context.Background())
	require.NoError(t, err)
	return e, m, c
}

func Test_SelectPair_LoadsPriceAndFee(t *testing.T) {
	t.Parallel()
	e, m, _ := newTestEngine(t)

	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))
	require.Equal(t, 1, m.priceCalls)
	require.Equal(t, 1, m.feeCalls)

	st := e.State()
	require.Equal(t, "BTC_USDT", st.SelectedSymbol)
	require.Equal(t, "30000.00", st.Price)
	require.Equal(t, "1.5", st.FeePercent)
	require.Equal(t, "0.001", st.MinAmount)
	require.Equal(t, "10.0", st.MaxAmount)
	require.Empty(t, st.DerivedAmount) // no amount entered yet
}

func Test_Derive_VolumeDiscountScenario(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))

	e.SetAmount("1")
	require.Equal(t, "29550.00", e.State().DerivedAmount)

	// Above the volume threshold the fee multiplier drops to 0.7:
	// 6 * 30000 * (1 - 0.015*0.7) = 178110.00.
	e.SetAmount("6")
	require.Equal(t, "178110.00", e.State().DerivedAmount)

	e.SetAmount("5")
	require.Equal(t, "147750.00", e.State().DerivedAmount)
}

func Test_Derive_DefaultFormula(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "ETH_USDT"))

	e.SetAmount("2")
	// 2 * 2000 * (1 - 0.015) = 3940.00
	require.Equal(t, "3940.00", e.State().DerivedAmount)
}

func Test_Derive_UnresolvedFormulaFallsBack(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "AB_CD"))

	// AB_CD declares formula id "abcd" which is not registered; the
	// default rule applies: 10 * 100 * (1 - 0.015) = 985.00.
	e.SetAmount("10")
	require.Equal(t, "985.00", e.State().DerivedAmount)
}

func Test_Derive_ClearsOnIncompleteOrNaNInput(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))

	e.SetAmount("1")
	require.NotEmpty(t, e.State().DerivedAmount)

	e.SetAmount("")
	require.Empty(t, e.State().DerivedAmount)

	e.SetAmount("1.2.3")
	require.Empty(t, e.State().DerivedAmount)

	e.SetAmount("abc")
	require.Empty(t, e.State().DerivedAmount)
}

func Test_Derive_ClearsOnUnknownSymbol(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	_ = e.SelectPair(context.Background(), "NOPE_XXX")
	e.SetAmount("1")
	require.Empty(t, e.State().DerivedAmount)
}

func Test_Recompute_Pure(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))

	e.SetAmount("3.5")
	first := e.State().DerivedAmount
	e.SetAmount("3.5")
	require.Equal(t, first, e.State().DerivedAmount)
}

func Test_OnLiveFeeUpdate_RecomputesWithoutPoll(t *testing.T) {
	t.Parallel()
	e, m, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))
	e.SetAmount("1")
	feeCallsBefore := m.feeCalls

	e.OnLiveFeeUpdate("2.0")

	st := e.State()
	require.Equal(t, "2.0", st.FeePercent)
	require.True(t, st.ChannelHealthy)
	// 1 * 30000 * (1 - 0.02) = 29400.00, recomputed immediately.
	require.Equal(t, "29400.00", st.DerivedAmount)
	require.Equal(t, feeCallsBefore, m.feeCalls)
}

func Test_OnLiveFeeUpdate_PatchesCacheWithoutCreating(t *testing.T) {
	t.Parallel()
	e, _, c := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))

	// No entry for the symbol yet: the patch must not create one.
	e.OnLiveFeeUpdate("2.0")
	_, ok := c.Get("BTC_USDT")
	require.False(t, ok)

	c.Put("BTC_USDT", domain.FeeQuote{Symbol: "BTC_USDT", FeePercent: "1.5"})
	e.OnLiveFeeUpdate("2.5")
	fee, ok := c.Get("BTC_USDT")
	require.True(t, ok)
	require.Equal(t, "2.5", fee.FeePercent)
}

func Test_OnLiveFeeUpdate_ErrorTokenKeepsLastGoodFee(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))
	e.SetAmount("1")

	e.OnLiveFeeUpdate(LiveFeeError)

	st := e.State()
	require.False(t, st.ChannelHealthy)
	require.Equal(t, "1.5", st.FeePercent)
	// The error token is never merged into arithmetic: the preview still
	// reflects the last good fee.
	require.Equal(t, "29550.00", st.DerivedAmount)
}

func Test_SetChannelHealth_Restores(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	e.OnLiveFeeUpdate(LiveFeeError)
	require.False(t, e.State().ChannelHealthy)

	e.SetChannelHealth(true)
	require.True(t, e.State().ChannelHealthy)
}

func Test_Reset_KeepsPrice(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))
	e.SetAmount("1")
	e.OnLiveFeeUpdate(LiveFeeError)

	e.Reset()

	st := e.State()
	require.Empty(t, st.SelectedSymbol)
	require.Empty(t, st.InputAmount)
	require.Empty(t, st.FeePercent)
	require.Empty(t, st.DerivedAmount)
	require.True(t, st.ChannelHealthy)
	require.Equal(t, "30000.00", st.Price)
}

func Test_RemoteError_LeavesPreviousValues(t *testing.T) {
	t.Parallel()
	e, m, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))
	e.SetAmount("1")
	require.Equal(t, "29550.00", e.State().DerivedAmount)

	m.priceErr = &RemoteError{Status: 500, Message: "boom"}
	m.feeErr = &RemoteError{Status: 500, Message: "boom"}
	err := e.SelectPair(context.Background(), "BTC_USDT")
	require.Error(t, err)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	require.Equal(t, 500, re.Status)

	st := e.State()
	require.Equal(t, "30000.00", st.Price)
	require.Equal(t, "1.5", st.FeePercent)
	require.Equal(t, "29550.00", st.DerivedAmount)
}

// Switching pairs does not cancel outstanding fetches, and applied results
// are not tagged with the selection they were issued for: whatever arrives
// last wins, exactly as the preview behaved historically. This test pins
// that accepted race down rather than hiding it.
func Test_SelectPair_LateResponse_LastWriterWins(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "ETH_USDT"))
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))
	require.Equal(t, "30000.00", e.State().Price)

	// A late price response for the abandoned ETH_USDT selection still
	// lands on the current state.
	e.ApplyPrice(domain.Price{Symbol: "ETH_USDT", Value: "2000.00"})
	require.Equal(t, "2000.00", e.State().Price)
}

func Test_ValidateAmount_Bounds(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))

	e.SetAmount("0.001")
	require.True(t, e.ValidateAmount())
	e.SetAmount("10.0")
	require.True(t, e.ValidateAmount())
	e.SetAmount("0.0001")
	require.False(t, e.ValidateAmount())
	e.SetAmount("10.1")
	require.False(t, e.ValidateAmount())
	e.SetAmount("")
	require.False(t, e.ValidateAmount())
}

func Test_ValidateAmount_DoesNotBlockPreview(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.SelectPair(context.Background(), "BTC_USDT"))

	e.SetAmount("11")
	require.False(t, e.ValidateAmount())
	// Out of range, but the preview still computes: 11 > 5 so the 0.7
	// multiplier applies. 11 * 30000 * (1 - 0.0105) = 326535.00.
	require.Equal(t, "326535.00", e.State().DerivedAmount)
}

func Test_FormulaFor_DescribesRule(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)

	require.Equal(t, "btc_usdt", e.FormulaFor("BTC_USDT").ID)
	require.Equal(t, "premium", e.FormulaFor("XYZ_USDT").ID)
	require.Equal(t, "default", e.FormulaFor("ETH_USDT").ID)
	require.Equal(t, "default", e.FormulaFor("AB_CD").ID)
	require.Equal(t, "default", e.FormulaFor("UNKNOWN").ID)
}
