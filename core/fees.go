package core

import (
	"github.com/shopspring/decimal"
)

// feeDenominator scales basis points: 250 bps = 2.5%.
const feeDenominator = 10000

// SplitProceeds divides a winning bid into the platform fee and the seller
// proceeds. Uses decimal arithmetic so that fee + proceeds always equals the
// winning amount exactly; the remainder of the division lands on the seller
// side.
func SplitProceeds(winningBid decimal.Decimal, feeBps int64) (fee, proceeds decimal.Decimal) {
	if feeBps <= 0 {
		return decimal.Zero, winningBid
	}
	fee = winningBid.
		Mul(decimal.NewFromInt(feeBps)).
		DivRound(decimal.NewFromInt(feeDenominator), 18)
	proceeds = winningBid.Sub(fee)
	return fee, proceeds
}

// MeetsIncrement reports whether a new bid outbids the current highest bid
// by at least the minimum increment. Equality to the threshold is accepted.
// The first bid on an auction is evaluated against a zero current bid, so it
// must itself be at least the increment.
func MeetsIncrement(amount, currentBid, minIncrement decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(currentBid.Add(minIncrement))
}

// MeetsReserve reports whether a bid satisfies the reserve price.
func MeetsReserve(bid, reservePrice decimal.Decimal) bool {
	return bid.GreaterThanOrEqual(reservePrice)
}
