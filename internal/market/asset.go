package market

// Asset is one tracked cryptocurrency and its current display metrics.
type Asset struct {
	ID                string   `json:"id"`
	Rank              int      `json:"rank"`
	Name              string   `json:"name"`
	Symbol            string   `json:"symbol"`
	Logo              string   `json:"logo"`
	Price             float64  `json:"price"`
	PercentChange1h   float64  `json:"percentChange1h"`
	PercentChange24h  float64  `json:"percentChange24h"`
	PercentChange7d   float64  `json:"percentChange7d"`
	MarketCap         float64  `json:"marketCap"`
	Volume24h         float64  `json:"volume24h"`
	CirculatingSupply float64  `json:"circulatingSupply"`
	MaxSupply         *float64 `json:"maxSupply"` // nil means uncapped
	Chart7d           string   `json:"chart7d"`
}

// Clone returns a deep copy so callers never share the MaxSupply pointer.
func (a Asset) Clone() Asset {
	if a.MaxSupply != nil {
		max := *a.MaxSupply
		a.MaxSupply = &max
	}
	return a
}

// Capped reports whether the asset has a non-zero maximum supply.
func (a Asset) Capped() bool {
	return a.MaxSupply != nil && *a.MaxSupply != 0
}

// CloneAll deep-copies a list of assets, preserving order.
func CloneAll(in []Asset) []Asset {
	if in == nil {
		return nil
	}
	out := make([]Asset, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// Supply is a convenience for building capped assets in seeds and tests.
func Supply(v float64) *float64 {
	return &v
}
