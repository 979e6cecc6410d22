package view

import (
	"strconv"
	"time"

	"github.com/leafsii/crypto-tracker/internal/assets"
	"github.com/leafsii/crypto-tracker/internal/format"
	"github.com/leafsii/crypto-tracker/internal/market"
)

// Change is a formatted percent cell with its indicator color.
type Change struct {
	Text  string       `json:"text"`
	Color format.Color `json:"color"`
	Value float64      `json:"value"`
}

// Row is one rendered table line.
type Row struct {
	ID                string  `json:"id"`
	Rank              string  `json:"rank"`
	Name              string  `json:"name"`
	Symbol            string  `json:"symbol"`
	Logo              string  `json:"logo"`
	Price             string  `json:"price"`
	Change1h          Change  `json:"change1h"`
	Change24h         Change  `json:"change24h"`
	Change7d          Change  `json:"change7d"`
	MarketCap         string  `json:"marketCap"`
	Volume24h         string  `json:"volume24h"`
	CirculatingSupply string  `json:"circulatingSupply"`
	MaxSupply         string  `json:"maxSupply,omitempty"`
	Chart7d           string  `json:"chart7d"`
}

// Table is the derived dashboard model for one store snapshot.
type Table struct {
	Rows      []Row     `json:"rows"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Build projects a snapshot into table rows, preserving asset order.
func Build(snap assets.Snapshot) Table {
	t := Table{
		Rows:      make([]Row, 0, len(snap.Assets)),
		Loading:   snap.Loading,
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Error != nil {
		t.Error = *snap.Error
	}
	for _, a := range snap.Assets {
		t.Rows = append(t.Rows, BuildRow(a))
	}
	return t
}

func BuildRow(a market.Asset) Row {
	row := Row{
		ID:                a.ID,
		Rank:              strconv.Itoa(a.Rank),
		Name:              a.Name,
		Symbol:            a.Symbol,
		Logo:              a.Logo,
		Price:             format.Currency(a.Price),
		Change1h:          change(a.PercentChange1h),
		Change24h:         change(a.PercentChange24h),
		Change7d:          change(a.PercentChange7d),
		MarketCap:         format.LargeNumber(a.MarketCap),
		Volume24h:         format.LargeNumber(a.Volume24h),
		CirculatingSupply: format.Supply(a.CirculatingSupply, a.Symbol),
		Chart7d:           a.Chart7d,
	}
	if a.Capped() {
		row.MaxSupply = format.MaxSupply(*a.MaxSupply)
	}
	return row
}

func change(v float64) Change {
	return Change{
		Text:  format.Percentage(v),
		Color: format.ColorByValue(v),
		Value: v,
	}
}
