package auction

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudmarket-io/auctionhouse/custody"
)

// CheckEscrowConservation verifies that, per pay token, the engine's escrow
// balance equals the sum of all open highest bids. Run by tests after every
// scenario step and available to operators as a health probe.
func CheckEscrowConservation(store Store, ledger custody.TokenLedger, escrowAccount string) error {
	listed, err := store.ListAuctions()
	if err != nil {
		return fmt.Errorf("list auctions: %w", err)
	}

	expected := make(map[string]decimal.Decimal)
	for _, entry := range listed {
		if entry.HasBid && entry.Bid.HasBid() {
			expected[entry.Auction.PayToken] = expected[entry.Auction.PayToken].Add(entry.Bid.Amount)
		} else if _, seen := expected[entry.Auction.PayToken]; !seen {
			expected[entry.Auction.PayToken] = decimal.Zero
		}
	}

	for token, want := range expected {
		have := ledger.Balance(token, escrowAccount)
		if !have.Equal(want) {
			return fmt.Errorf("escrow imbalance for %s: ledger holds %s, open bids total %s", token, have, want)
		}
	}
	return nil
}

// CheckAssetCustody verifies that every open auction's asset is actually
// held by the escrow account.
func CheckAssetCustody(store Store, assets custody.AssetRegistry, escrowAccount string) error {
	listed, err := store.ListAuctions()
	if err != nil {
		return fmt.Errorf("list auctions: %w", err)
	}

	for _, entry := range listed {
		owner, err := assets.OwnerOf(entry.Key)
		if err != nil {
			return fmt.Errorf("asset %s has an open auction but no owner: %w", entry.Key, err)
		}
		if owner != escrowAccount {
			return fmt.Errorf("asset %s has an open auction but is owned by %s, not escrow", entry.Key, owner)
		}
	}
	return nil
}
