// Package api defines the wire protocol between clients and the auction
// daemon: one JSON request per connection, discriminated by a type field,
// answered by a single JSON response. Monetary amounts travel as exact
// decimal strings.
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Request type discriminators.
const (
	TypePing                = "ping"
	TypeCreateAuction       = "create_auction"
	TypePlaceBid            = "place_bid"
	TypeUpdateReservePrice  = "update_reserve_price"
	TypeWithdrawBid         = "withdraw_bid"
	TypeResultAuction       = "result_auction"
	TypeResultFailedAuction = "result_failed_auction"
	TypeCancelAuction       = "cancel_auction"
	TypeGetAuction          = "get_auction"
	TypeGetHighestBid       = "get_highest_bid"
	TypeListAuctions        = "list_auctions"
	TypeSetPaused           = "set_paused"
)

// BaseRequest carries the discriminator; the server peeks at it before
// decoding the full request.
type BaseRequest struct {
	Type string `json:"type"`
}

// AssetRef addresses one non-fungible asset in a request.
type AssetRef struct {
	AssetContract string `json:"asset_contract"`
	AssetID       string `json:"asset_id"`
}

type CreateAuctionRequest struct {
	Type         string   `json:"type"`
	Caller       string   `json:"caller"`
	Asset        AssetRef `json:"asset"`
	PayToken     string   `json:"pay_token"`
	ReservePrice string   `json:"reserve_price"`
	StartTime    int64    `json:"start_time"` // unix seconds
	WithMinBid   bool     `json:"with_min_bid"`
	EndTime      int64    `json:"end_time"` // unix seconds
}

type PlaceBidRequest struct {
	Type   string   `json:"type"`
	Caller string   `json:"caller"`
	Asset  AssetRef `json:"asset"`
	Amount string   `json:"amount"`
}

type UpdateReservePriceRequest struct {
	Type            string   `json:"type"`
	Caller          string   `json:"caller"`
	Asset           AssetRef `json:"asset"`
	NewReservePrice string   `json:"new_reserve_price"`
}

// AssetOpRequest covers the operations that need only a caller and an asset:
// withdraw_bid, result_auction, result_failed_auction, cancel_auction,
// get_auction, get_highest_bid.
type AssetOpRequest struct {
	Type   string   `json:"type"`
	Caller string   `json:"caller"`
	Asset  AssetRef `json:"asset"`
}

type SetPausedRequest struct {
	Type   string `json:"type"`
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

// AuctionView is the wire projection of an open auction.
type AuctionView struct {
	Asset        AssetRef `json:"asset"`
	Seller       string   `json:"seller"`
	PayToken     string   `json:"pay_token"`
	ReservePrice string   `json:"reserve_price"`
	StartTime    int64    `json:"start_time"`
	EndTime      int64    `json:"end_time"`
	MinBid       string   `json:"min_bid"`
	Resulted     bool     `json:"resulted"`
}

// BidView is the wire projection of a highest bid.
type BidView struct {
	Bidder      string `json:"bidder"`
	Amount      string `json:"amount"`
	LastBidTime int64  `json:"last_bid_time"`
	HasBid      bool   `json:"has_bid"`
}

// ListedAuctionView pairs an auction with its bid in list responses.
type ListedAuctionView struct {
	Auction AuctionView `json:"auction"`
	Bid     *BidView    `json:"bid,omitempty"`
}

// Response is the single reply sent for every request.
type Response struct {
	Type      string              `json:"type"`
	RequestID string              `json:"request_id"`
	Success   bool                `json:"success"`
	Message   string              `json:"message,omitempty"`
	Auction   *AuctionView        `json:"auction,omitempty"`
	Bid       *BidView            `json:"bid,omitempty"`
	Auctions  []ListedAuctionView `json:"auctions,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

// ParseAmount parses a wire amount into an exact decimal.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return amount, nil
}

// ParseTime converts a unix-seconds wire timestamp.
func ParseTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
