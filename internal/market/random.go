package market

import (
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Rand is the uniform [0,1) source behind every simulated tick.
// *rand.Rand satisfies it; tests substitute fixed values.
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded source. A zero seed uses the current time.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Round rounds v to places decimal places, half away from zero.
// Negative zero is normalised to zero.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	if f == 0 {
		return 0
	}
	return f
}

// Jitter draws a uniform fraction in [-spread, +spread).
func Jitter(r Rand, spread float64) float64 {
	return r.Float64()*spread*2 - spread
}
