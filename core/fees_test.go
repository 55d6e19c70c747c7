package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSplitProceeds_Basic(t *testing.T) {
	// 2.5% of 100 is 2.5
	fee, proceeds := SplitProceeds(d("100"), 250)

	check.True(t, fee.Equal(d("2.5")))
	check.True(t, proceeds.Equal(d("97.5")))
}

func TestSplitProceeds_Conservation(t *testing.T) {
	// fee + proceeds must always reconstruct the winning bid exactly
	bids := []string{"75", "0.0001", "123456789.987654321", "1", "3"}

	for _, raw := range bids {
		bid := d(raw)
		fee, proceeds := SplitProceeds(bid, 250)
		check.True(t, fee.Add(proceeds).Equal(bid))
	}
}

func TestSplitProceeds_ZeroFee(t *testing.T) {
	fee, proceeds := SplitProceeds(d("75"), 0)

	check.True(t, fee.IsZero())
	check.True(t, proceeds.Equal(d("75")))
}

func TestMeetsIncrement(t *testing.T) {
	one := d("1")

	// First bid is measured against a zero current bid
	check.True(t, MeetsIncrement(d("25"), decimal.Zero, one))
	check.True(t, MeetsIncrement(d("1"), decimal.Zero, one))
	check.False(t, MeetsIncrement(d("0.5"), decimal.Zero, one))

	// Equality to the threshold is accepted
	check.True(t, MeetsIncrement(d("26"), d("25"), one))
	check.False(t, MeetsIncrement(d("25"), d("25"), one))
	check.False(t, MeetsIncrement(d("24"), d("25"), one))
}

func TestMeetsReserve(t *testing.T) {
	check.True(t, MeetsReserve(d("100"), d("100")))
	check.True(t, MeetsReserve(d("101"), d("100")))
	check.False(t, MeetsReserve(d("99.999999"), d("100")))
}
