package assets

import "github.com/leafsii/crypto-tracker/internal/market"

const (
	logoBase  = "https://s2.coinmarketcap.com/static/img/coins/64x64/"
	chartBase = "https://s3.coinmarketcap.com/generated/sparklines/web/7d/2781/"
)

// DefaultAssets returns the built-in dataset the store starts with.
func DefaultAssets() []market.Asset {
	return []market.Asset{
		{
			ID:                "bitcoin",
			Rank:              1,
			Name:              "Bitcoin",
			Symbol:            "BTC",
			Logo:              logoBase + "1.png",
			Price:             93759.48,
			PercentChange1h:   0.43,
			PercentChange24h:  0.93,
			PercentChange7d:   11.11,
			MarketCap:         1861618902186,
			Volume24h:         43874950947,
			CirculatingSupply: 19.85,
			MaxSupply:         market.Supply(21),
			Chart7d:           chartBase + "1.svg",
		},
		{
			ID:                "ethereum",
			Rank:              2,
			Name:              "Ethereum",
			Symbol:            "ETH",
			Logo:              logoBase + "1027.png",
			Price:             1802.46,
			PercentChange1h:   0.60,
			PercentChange24h:  3.21,
			PercentChange7d:   13.68,
			MarketCap:         217581279327,
			Volume24h:         23547469307,
			CirculatingSupply: 120.71,
			Chart7d:           chartBase + "1027.svg",
		},
		{
			ID:                "tether",
			Rank:              3,
			Name:              "Tether",
			Symbol:            "USDT",
			Logo:              logoBase + "825.png",
			Price:             1.00,
			PercentChange1h:   0.00,
			PercentChange24h:  0.00,
			PercentChange7d:   0.04,
			MarketCap:         145320022085,
			Volume24h:         92288882007,
			CirculatingSupply: 145.27,
			Chart7d:           chartBase + "825.svg",
		},
		{
			ID:                "xrp",
			Rank:              4,
			Name:              "XRP",
			Symbol:            "XRP",
			Logo:              logoBase + "52.png",
			Price:             2.22,
			PercentChange1h:   0.46,
			PercentChange24h:  0.54,
			PercentChange7d:   6.18,
			MarketCap:         130073814966,
			Volume24h:         5131481491,
			CirculatingSupply: 58.39,
			MaxSupply:         market.Supply(100),
			Chart7d:           chartBase + "52.svg",
		},
		{
			ID:                "bnb",
			Rank:              5,
			Name:              "BNB",
			Symbol:            "BNB",
			Logo:              logoBase + "1839.png",
			Price:             606.65,
			PercentChange1h:   0.09,
			PercentChange24h:  -1.20,
			PercentChange7d:   3.73,
			MarketCap:         85471956947,
			Volume24h:         1874281784,
			CirculatingSupply: 140.89,
			MaxSupply:         market.Supply(200),
			Chart7d:           chartBase + "1839.svg",
		},
	}
}
