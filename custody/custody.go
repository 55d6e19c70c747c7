// Package custody defines the two external custody services the auction
// engine depends on: a fungible-token ledger used to escrow bid amounts and
// a non-fungible-asset registry used to escrow the auctioned asset itself.
// In-memory implementations back the daemon's embedded mode and the tests.
package custody

import (
	"github.com/shopspring/decimal"

	"github.com/cloudmarket-io/auctionhouse/core"
)

// TokenLedger moves fungible pay-token balances between accounts. Transfers
// are atomic: they either fully apply or leave both balances untouched.
type TokenLedger interface {
	// Transfer moves amount of token from one holder to another.
	Transfer(token, from, to string, amount decimal.Decimal) error

	// Balance returns the holder's balance of the given token.
	Balance(token, holder string) decimal.Decimal
}

// AssetRegistry tracks ownership of non-fungible assets and operator
// approvals, and moves assets between owners.
type AssetRegistry interface {
	// OwnerOf returns the current owner of the asset.
	OwnerOf(key core.AssetKey) (string, error)

	// IsApprovedForAll reports whether owner has authorized operator to
	// move any of their assets.
	IsApprovedForAll(owner, operator string) bool

	// Transfer moves the asset from its current owner to a new one. Fails
	// if from does not own the asset.
	Transfer(key core.AssetKey, from, to string) error
}
