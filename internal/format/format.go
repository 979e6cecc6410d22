// Package format turns asset figures into display strings and colors.
// Every function is pure.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Color is a semantic indicator color for signed values.
type Color string

const (
	ColorPositive Color = "#16c784"
	ColorNegative Color = "#ea3943"
	ColorNeutral  Color = "#a6b0c3"
)

const currencySymbol = "$"

var printer = message.NewPrinter(language.AmericanEnglish)

type unit struct {
	threshold float64
	suffix    string
}

// Ordered largest first; thresholds are inclusive.
var units = []unit{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// fixed2 renders v with exactly two fraction digits, rounding half away from zero.
func fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Currency formats v as US dollars with grouping and two decimals,
// e.g. 93759.48 -> "$93,759.48", -12.5 -> "-$12.50".
func Currency(v float64) string {
	rounded, _ := decimal.NewFromFloat(v).Round(2).Float64()
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = math.Abs(rounded)
	}
	return sign + currencySymbol + printer.Sprint(number.Decimal(rounded, number.Scale(2)))
}

// LargeNumber abbreviates v with T/B/M/K suffixes, e.g. 1861618902186 -> "$1.86T".
func LargeNumber(v float64) string {
	for _, u := range units {
		if v >= u.threshold {
			return currencySymbol + fixed2(v/u.threshold) + u.suffix
		}
	}
	return currencySymbol + fixed2(v)
}

// Percentage formats v with two decimals and a trailing "%".
// Only strictly positive values get a leading "+"; negative values keep
// their "-" even when they round to zero.
func Percentage(v float64) string {
	s := fixed2(v) + "%"
	switch {
	case v > 0:
		return "+" + s
	case v < 0 && !strings.HasPrefix(s, "-"):
		return "-" + s
	}
	return s
}

// ColorByValue picks the indicator color from the sign of v.
func ColorByValue(v float64) Color {
	switch {
	case v > 0:
		return ColorPositive
	case v < 0:
		return ColorNegative
	default:
		return ColorNeutral
	}
}

// Supply formats a circulating supply figure with its ticker, e.g. "19.85 BTC".
func Supply(circulating float64, symbol string) string {
	return fmt.Sprintf("%s %s", fixed2(circulating), symbol)
}

// MaxSupply formats a supply cap with two decimals, e.g. 21 -> "21.00".
func MaxSupply(limit float64) string {
	return fixed2(limit)
}
