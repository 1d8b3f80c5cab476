// Package format renders numbers, times and text for dashboard panels.
package format

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// CryptoPrice renders a USD price with a precision picked from its magnitude:
// no decimals (with thousands separators) from 1000 upwards, two from 1, four
// from 0.0001 and eight below that.
func CryptoPrice(price float64) string {
	switch {
	case price >= 1000:
		return Grouped(price, ",")
	case price >= 1:
		return Fixed(price, 2)
	case price >= 0.0001:
		return Fixed(price, 4)
	default:
		return Fixed(price, 8)
	}
}

// USD prefixes CryptoPrice with a dollar sign.
func USD(price float64) string {
	return "$" + CryptoPrice(price)
}

// Currency compresses large peso amounts to B and M suffixes with one decimal.
// Smaller amounts use es-CO grouping: dots for thousands, a comma before up to
// three decimals.
func Currency(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	switch {
	case value >= 1e9:
		return "$" + Fixed(value/1e9, 1) + "B"
	case value >= 1e6:
		return "$" + Fixed(value/1e6, 1) + "M"
	}
	rounded := exact(value).Round(3)
	whole := rounded.Truncate(0)
	out := groupInteger(whole, ".")
	frac := strings.TrimPrefix(rounded.Sub(whole).Abs().StringFixed(3), "0.")
	frac = strings.TrimRight(frac, "0")
	if frac != "" {
		out += "," + frac
	}
	if rounded.Sign() < 0 && whole.IsZero() {
		out = "-" + out
	}
	return "$" + out
}

// Change renders a percentage change with a direction arrow.
func Change(pct float64) string {
	arrow := "▲"
	if pct < 0 {
		arrow = "▼"
	}
	return arrow + " " + Fixed(math.Abs(pct), 2) + "%"
}

// Fixed rounds the exact binary value of v to the given number of decimals,
// ties away from zero.
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 0) {
		if v > 0 {
			return "Infinity"
		}
		return "-Infinity"
	}
	return exact(v).StringFixed(places)
}

// Grouped rounds v to an integer and inserts sep between thousands.
func Grouped(v float64, sep string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Fixed(v, 0)
	}
	return groupInteger(exact(v).Round(0), sep)
}

func groupInteger(d decimal.Decimal, sep string) string {
	grouped := humanize.BigComma(d.BigInt())
	if sep == "," {
		return grouped
	}
	return strings.ReplaceAll(grouped, ",", sep)
}

// exact converts a float64 into the decimal it represents without the
// shortest-representation rounding of decimal.NewFromFloat.
func exact(v float64) decimal.Decimal {
	if v == 0 {
		return decimal.Zero
	}
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	five := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, five), int32(exp))
}

// TimeAgo renders the elapsed time between t and now in Spanish shorthand.
func TimeAgo(t, now time.Time) string {
	diff := int64(math.Floor(now.Sub(t).Seconds()))
	switch {
	case diff < 60:
		return "ahora"
	case diff < 3600:
		return itoa(diff/60) + "m"
	case diff < 86400:
		return itoa(diff/3600) + "h"
	default:
		return itoa(diff/86400) + "d"
	}
}

var shortMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// ShortDate renders a two-digit day and abbreviated Spanish month, or N/A.
func ShortDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	day := itoa(int64(t.Day()))
	if len(day) == 1 {
		day = "0" + day
	}
	return day + " " + shortMonths[t.Month()-1]
}

// Truncate cuts s to at most n runes and appends an ellipsis when it did.
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// OrNA substitutes N/A for blank values.
func OrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
