package core

import (
	"fmt"
	"strings"
)

// AssetKey identifies a single non-fungible asset: the contract that minted
// it plus its token ID within that contract. It keys both the auction
// registry and the bid ledger.
type AssetKey struct {
	Contract string `json:"contract"`
	TokenID  string `json:"token_id"`
}

// NewAssetKey normalizes the contract address to lower case so lookups are
// insensitive to address checksum casing.
func NewAssetKey(contract, tokenID string) AssetKey {
	return AssetKey{
		Contract: strings.ToLower(contract),
		TokenID:  tokenID,
	}
}

// Validate reports whether both components of the key are present.
func (k AssetKey) Validate() error {
	if k.Contract == "" {
		return fmt.Errorf("asset key missing contract address")
	}
	if k.TokenID == "" {
		return fmt.Errorf("asset key missing token id")
	}
	return nil
}

func (k AssetKey) String() string {
	return k.Contract + "/" + k.TokenID
}
