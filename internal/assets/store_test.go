package assets

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/leafsii/crypto-tracker/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(DefaultAssets(), market.NewRand(99))
	require.NoError(t, err)
	return s
}

func TestSelectors(t *testing.T) {
	s := newTestStore(t)

	all := s.All()
	require.Len(t, all, 5)
	ids := make([]string, len(all))
	for i, a := range all {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"bitcoin", "ethereum", "tether", "xrp", "bnb"}, ids)

	btc, ok := s.ByID("bitcoin")
	require.True(t, ok)
	assert.Equal(t, "BTC", btc.Symbol)
	assert.Equal(t, 93759.48, btc.Price)

	_, ok = s.ByID("dogecoin")
	assert.False(t, ok)

	assert.False(t, s.Loading())
	_, hasErr := s.Error()
	assert.False(t, hasErr)
}

func TestSelectorsReturnCopies(t *testing.T) {
	s := newTestStore(t)

	all := s.All()
	all[0].Price = -1
	*all[0].MaxSupply = 0

	btc, _ := s.ByID("bitcoin")
	assert.Equal(t, 93759.48, btc.Price)
	assert.Equal(t, 21.0, *btc.MaxSupply)
}

func TestSetAssetsValidation(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()

	err := s.SetAssets([]market.Asset{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = s.SetAssets([]market.Asset{{ID: ""}})
	assert.ErrorIs(t, err, ErrEmptyID)

	err = s.SetAssets([]market.Asset{{ID: "neg", Price: -1}})
	assert.ErrorIs(t, err, ErrNegativePrice)

	after := s.Snapshot()
	assert.Equal(t, before.Version, after.Version, "rejected lists must not bump the version")
	assert.Equal(t, before.Assets, after.Assets)
}

func TestSetAssetsReplaces(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetAssets([]market.Asset{{ID: "solana", Symbol: "SOL", Price: 150}}))
	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, "solana", all[0].ID)

	_, ok := s.ByID("bitcoin")
	assert.False(t, ok)
	sol, ok := s.ByID("solana")
	require.True(t, ok)
	assert.Equal(t, 150.0, sol.Price)

	require.NoError(t, s.SetAssets(nil))
	assert.Empty(t, s.All())
}

func TestLoadingAndError(t *testing.T) {
	s := newTestStore(t)

	s.SetLoading(true)
	assert.True(t, s.Loading())
	s.SetLoading(false)
	assert.False(t, s.Loading())

	s.SetError("upstream timeout")
	msg, ok := s.Error()
	require.True(t, ok)
	assert.Equal(t, "upstream timeout", msg)

	// The error slot is advisory only.
	s.UpdatePrices()
	_, ok = s.Error()
	assert.True(t, ok)

	s.ClearError()
	_, ok = s.Error()
	assert.False(t, ok)
}

func TestUpdatePricesInvariants(t *testing.T) {
	s := newTestStore(t)

	for tick := 0; tick < 200; tick++ {
		before := s.All()
		s.UpdatePrices()
		after := s.All()

		require.Len(t, after, len(before))
		for i := range before {
			b, a := before[i], after[i]

			require.Equal(t, b.ID, a.ID)
			require.Equal(t, b.Rank, a.Rank)
			require.Equal(t, b.Name, a.Name)
			require.Equal(t, b.Symbol, a.Symbol)
			require.Equal(t, b.Logo, a.Logo)
			require.Equal(t, b.MarketCap, a.MarketCap)
			require.Equal(t, b.CirculatingSupply, a.CirculatingSupply)
			require.Equal(t, b.MaxSupply, a.MaxSupply)
			require.Equal(t, b.Chart7d, a.Chart7d)

			require.GreaterOrEqual(t, a.Price, 0.0)
			require.InDelta(t, b.Price, a.Price, b.Price*market.PriceSpread+0.005)
			require.InDelta(t, b.Volume24h, a.Volume24h, b.Volume24h*market.VolumeSpread+0.5)
			require.Equal(t, a.Volume24h, math.Round(a.Volume24h))

			checkPercent(t, b.PercentChange1h, a.PercentChange1h, market.Volatility1h)
			checkPercent(t, b.PercentChange24h, a.PercentChange24h, market.Volatility24h)
			checkPercent(t, b.PercentChange7d, a.PercentChange7d, market.Volatility7d)
		}
	}
}

func checkPercent(t *testing.T, before, after, vol float64) {
	t.Helper()
	const slack = 0.005 + 1e-9
	if before == 0 {
		require.GreaterOrEqual(t, after, -vol-slack)
		require.LessOrEqual(t, after, vol+slack)
		return
	}
	require.Equal(t, math.Signbit(before), math.Signbit(after), "sign flipped: %v -> %v", before, after)
	require.GreaterOrEqual(t, math.Abs(after), market.MinPercentMagnitude)
	require.LessOrEqual(t, math.Abs(after), math.Abs(before)*(1+vol)+slack)
}

func TestUpdatePricesDeterministic(t *testing.T) {
	s, err := NewStore([]market.Asset{{
		ID:               "tether",
		Price:            1,
		PercentChange1h:  0.5,
		PercentChange24h: -1,
		Volume24h:        1000,
	}}, constRand(0.5))
	require.NoError(t, err)

	s.UpdatePrices()

	usdt, _ := s.ByID("tether")
	assert.Equal(t, 1.0, usdt.Price)
	assert.Equal(t, 0.5, usdt.PercentChange1h)
	assert.Equal(t, -1.0, usdt.PercentChange24h)
	assert.Equal(t, 0.0, usdt.PercentChange7d)
	assert.Equal(t, 1000.0, usdt.Volume24h)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s := newTestStore(t)
	ch, cancel := s.Subscribe()
	defer cancel()

	start := s.Snapshot().Version
	s.UpdatePrices()

	select {
	case snap := <-ch:
		assert.Equal(t, start+1, snap.Version)
		assert.Len(t, snap.Assets, 5)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for snapshot")
	}
}

func TestSubscribeKeepsLatestOnly(t *testing.T) {
	s := newTestStore(t)
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		s.UpdatePrices()
	}
	latest := s.Snapshot().Version

	snap := <-ch
	assert.Equal(t, latest, snap.Version)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot %d", extra.Version)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	s := newTestStore(t)
	ch, cancel := s.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Mutations after cancel must not panic on the closed channel.
	s.UpdatePrices()
}

func TestConcurrentReadersNeverSeePartialTick(t *testing.T) {
	s, err := NewStore(DefaultAssets(), constRand(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.UpdatePrices()
		}
		close(stop)
	}()

	// With a constant draw every asset moves by the same factor per tick,
	// so the ratio between two prices must stay fixed in every snapshot.
	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		snap := s.Snapshot()
		ratio := snap.Assets[0].Price / snap.Assets[1].Price
		require.InDelta(t, 93759.48/1802.46, ratio, 0.1)
	}
}
