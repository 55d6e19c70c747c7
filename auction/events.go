package auction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudmarket-io/auctionhouse/core"
)

// Event is a notification emitted after a successful state transition.
type Event interface {
	EventName() string
}

// EventSink receives emitted events. Sinks must not block settlement; a
// failing sink is the sink's problem, not the engine's.
type EventSink interface {
	Publish(ev Event)
}

type AuctionCreated struct {
	Key      core.AssetKey `json:"key"`
	PayToken string        `json:"pay_token"`
}

func (AuctionCreated) EventName() string { return "auction_created" }

type BidPlaced struct {
	Key    core.AssetKey   `json:"key"`
	Bidder string          `json:"bidder"`
	Amount decimal.Decimal `json:"amount"`
}

func (BidPlaced) EventName() string { return "bid_placed" }

type ReservePriceUpdated struct {
	Key        core.AssetKey   `json:"key"`
	PayToken   string          `json:"pay_token"`
	NewReserve decimal.Decimal `json:"new_reserve"`
}

func (ReservePriceUpdated) EventName() string { return "reserve_price_updated" }

type BidWithdrawn struct {
	Key    core.AssetKey   `json:"key"`
	Bidder string          `json:"bidder"`
	Amount decimal.Decimal `json:"amount"`
}

func (BidWithdrawn) EventName() string { return "bid_withdrawn" }

type AuctionResulted struct {
	Key        core.AssetKey   `json:"key"`
	Seller     string          `json:"seller"`
	Winner     string          `json:"winner"`
	PayToken   string          `json:"pay_token"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	WinningBid decimal.Decimal `json:"winning_bid"`
}

func (AuctionResulted) EventName() string { return "auction_resulted" }

type AuctionFailed struct {
	Key      core.AssetKey   `json:"key"`
	Seller   string          `json:"seller"`
	Bidder   string          `json:"bidder"`
	PayToken string          `json:"pay_token"`
	TopBid   decimal.Decimal `json:"top_bid"`
}

func (AuctionFailed) EventName() string { return "auction_failed" }

type AuctionCancelled struct {
	Key core.AssetKey `json:"key"`
}

func (AuctionCancelled) EventName() string { return "auction_cancelled" }

type PauseToggled struct {
	Paused bool      `json:"paused"`
	At     time.Time `json:"at"`
}

func (PauseToggled) EventName() string { return "pause_toggled" }
