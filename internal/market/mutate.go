package market

import "math"

// Volatility presets per percent-change window.
const (
	DefaultVolatility = 0.2

	Volatility1h  = 0.2
	Volatility24h = 0.3
	Volatility7d  = 0.1

	// PriceSpread bounds the per-tick relative price move (±0.5%).
	PriceSpread = 0.005
	// VolumeSpread bounds the per-tick relative volume move (±1%).
	VolumeSpread = 0.01

	// MinPercentMagnitude is the floor for a non-zero percent change.
	MinPercentMagnitude = 0.01
)

// PercentChange simulates one tick of noise on a signed percent value.
// A non-zero input never changes sign and never drops below
// MinPercentMagnitude in magnitude. The result is not rounded.
func PercentChange(r Rand, current, volatility float64) float64 {
	change := Jitter(r, volatility)
	if current == 0 {
		return change
	}

	sign := 1.0
	if current < 0 {
		sign = -1.0
	}
	abs := math.Abs(current)
	newAbs := abs + abs*change

	if newAbs < MinPercentMagnitude {
		return MinPercentMagnitude * sign
	}
	return newAbs * sign
}

// Tick applies one simulated market update to a and returns the result.
// Static fields are left untouched. Draw order: price, 1h, 24h, 7d, volume.
func Tick(r Rand, a Asset) Asset {
	price := a.Price * (1 + Jitter(r, PriceSpread))
	a.Price = math.Max(0, Round(price, 2))

	a.PercentChange1h = Round(PercentChange(r, a.PercentChange1h, Volatility1h), 2)
	a.PercentChange24h = Round(PercentChange(r, a.PercentChange24h, Volatility24h), 2)
	a.PercentChange7d = Round(PercentChange(r, a.PercentChange7d, Volatility7d), 2)

	volume := a.Volume24h * (1 + Jitter(r, VolumeSpread))
	a.Volume24h = Round(volume, 0)
	return a
}
