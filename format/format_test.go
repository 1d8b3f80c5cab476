package format

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCryptoPriceBands(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{65000.4321, "65,000"},
		{1000, "1,000"},
		{1234567.5, "1,234,568"},
		{999.994, "999.99"},
		{1, "1.00"},
		{0.5, "0.5000"},
		{0.0001, "0.0001"},
		{0.00001234, "0.00001234"},
		{0, "0.00000000"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CryptoPrice(tc.price), "price %v", tc.price)
	}
	require.Equal(t, "$65,000", USD(65000.4321))
}

func TestFixedUsesExactBinaryValue(t *testing.T) {
	// 1.005 is stored as 1.00499999999999989...
	require.Equal(t, "1.00", Fixed(1.005, 2))
	// 2.5 and 0.125 are exact ties and round away from zero.
	require.Equal(t, "3", Fixed(2.5, 0))
	require.Equal(t, "0.13", Fixed(0.125, 2))
	require.Equal(t, "-3", Fixed(-2.5, 0))
	require.Equal(t, "4150.00", Fixed(4150, 2))
}

func TestCryptoPriceIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		price := rng.ExpFloat64() * float64(rng.Intn(100000))
		require.Equal(t, CryptoPrice(price), CryptoPrice(price))
	}
}

func TestCurrency(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{2_450_000_000, "$2.5B"},
		{1_000_000_000, "$1.0B"},
		{15_750_000, "$15.8M"},
		{999_999.5, "$999.999,5"},
		{123_456, "$123.456"},
		{1234.5678, "$1.234,568"},
		{12, "$12"},
		{0, "$0"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Currency(tc.value), "value %v", tc.value)
	}
}

func TestChange(t *testing.T) {
	require.Equal(t, "▲ 2.35%", Change(2.3456))
	require.Equal(t, "▼ 1.25%", Change(-1.25))
	require.Equal(t, "▲ 0.00%", Change(0))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "ahora", TimeAgo(now.Add(-59*time.Second), now))
	require.Equal(t, "ahora", TimeAgo(now.Add(time.Minute), now))
	require.Equal(t, "1m", TimeAgo(now.Add(-60*time.Second), now))
	require.Equal(t, "59m", TimeAgo(now.Add(-59*time.Minute-59*time.Second), now))
	require.Equal(t, "2h", TimeAgo(now.Add(-2*time.Hour), now))
	require.Equal(t, "3d", TimeAgo(now.Add(-75*time.Hour), now))
}

func TestShortDate(t *testing.T) {
	require.Equal(t, "N/A", ShortDate(time.Time{}))
	require.Equal(t, "05 ene", ShortDate(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "21 dic", ShortDate(time.Date(2025, 12, 21, 0, 0, 0, 0, time.UTC)))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "Bogotá...", Truncate("Bogotá D.C.", 6))
	require.Equal(t, "", Truncate("", 3))
}

func TestOrNA(t *testing.T) {
	require.Equal(t, "N/A", OrNA("  "))
	require.Equal(t, "ANI", OrNA("ANI"))
}
