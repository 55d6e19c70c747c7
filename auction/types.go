package auction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudmarket-io/auctionhouse/core"
)

// AuctionRecord is the per-asset auction entry. Its existence implies the
// asset is held in engine escrow.
type AuctionRecord struct {
	Seller       string
	PayToken     string
	ReservePrice decimal.Decimal
	StartTime    time.Time
	EndTime      time.Time
	MinBid       decimal.Decimal
	Resulted     bool
}

// BidRecord is the current highest bid on an auction. A non-zero Amount
// implies the engine holds exactly that much of the auction's pay token in
// escrow for the bidder.
type BidRecord struct {
	Bidder      string
	Amount      decimal.Decimal
	LastBidTime time.Time
}

// HasBid reports whether any bid has been accepted.
func (b BidRecord) HasBid() bool {
	return b.Bidder != "" && b.Amount.IsPositive()
}

// View is the read-only projection of an auction returned by queries.
type View struct {
	Key          core.AssetKey   `json:"key"`
	Seller       string          `json:"seller"`
	PayToken     string          `json:"pay_token"`
	ReservePrice decimal.Decimal `json:"reserve_price"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	MinBid       decimal.Decimal `json:"min_bid"`
	Resulted     bool            `json:"resulted"`
}

// Params are the engine's operating parameters.
type Params struct {
	// MinBidIncrement is the fixed amount every accepted bid must exceed
	// its predecessor by. The first bid is measured against zero.
	MinBidIncrement decimal.Decimal

	// PlatformFeeBps is the platform's cut of a successful sale, in basis
	// points of the winning bid.
	PlatformFeeBps int64

	// EscrowAccount is the ledger account and asset-registry identity the
	// engine holds custody under.
	EscrowAccount string

	// Admin may toggle the administrative pause.
	Admin string
}

// DefaultParams mirror the platform's standard deployment: increment of 1
// pay-token unit and a 2.5% platform fee.
func DefaultParams() Params {
	return Params{
		MinBidIncrement: decimal.NewFromInt(1),
		PlatformFeeBps:  250,
		EscrowAccount:   "auctionhouse:escrow",
		Admin:           "auctionhouse:admin",
	}
}
