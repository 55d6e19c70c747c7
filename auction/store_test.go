package auction

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudmarket-io/auctionhouse/core"
)

func TestMemoryStore_AuctionRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	key := core.NewAssetKey("0xabc", "1")

	_, exists, err := store.GetAuction(key)
	check.Nil(t, err)
	check.False(t, exists)

	rec := AuctionRecord{
		Seller:       "alice",
		PayToken:     "wftm",
		ReservePrice: decimal.NewFromInt(100),
		StartTime:    time.Unix(1000, 0).UTC(),
		EndTime:      time.Unix(2000, 0).UTC(),
		MinBid:       decimal.Zero,
	}
	check.Nil(t, store.PutAuction(key, rec))

	got, exists, err := store.GetAuction(key)
	check.Nil(t, err)
	check.True(t, exists)
	check.Equal(t, "alice", got.Seller)
	check.True(t, got.ReservePrice.Equal(decimal.NewFromInt(100)))
}

func TestMemoryStore_DeleteAuctionAndBid(t *testing.T) {
	store := NewMemoryStore()
	key := core.NewAssetKey("0xabc", "1")

	check.Nil(t, store.PutAuction(key, AuctionRecord{Seller: "alice"}))
	check.Nil(t, store.PutBid(key, BidRecord{Bidder: "bob", Amount: decimal.NewFromInt(5)}))

	check.Nil(t, store.DeleteAuctionAndBid(key))

	_, exists, err := store.GetAuction(key)
	check.Nil(t, err)
	check.False(t, exists)
	_, exists, err = store.GetBid(key)
	check.Nil(t, err)
	check.False(t, exists)
}

func TestMemoryStore_DeleteBidKeepsAuction(t *testing.T) {
	store := NewMemoryStore()
	key := core.NewAssetKey("0xabc", "1")

	check.Nil(t, store.PutAuction(key, AuctionRecord{Seller: "alice"}))
	check.Nil(t, store.PutBid(key, BidRecord{Bidder: "bob", Amount: decimal.NewFromInt(5)}))

	check.Nil(t, store.DeleteBid(key))

	_, exists, err := store.GetAuction(key)
	check.Nil(t, err)
	check.True(t, exists)
	_, exists, err = store.GetBid(key)
	check.Nil(t, err)
	check.False(t, exists)
}

func TestMemoryStore_ListAuctionsSorted(t *testing.T) {
	store := NewMemoryStore()

	keyB := core.NewAssetKey("0xbbb", "1")
	keyA := core.NewAssetKey("0xaaa", "9")
	check.Nil(t, store.PutAuction(keyB, AuctionRecord{Seller: "bob"}))
	check.Nil(t, store.PutAuction(keyA, AuctionRecord{Seller: "alice"}))
	check.Nil(t, store.PutBid(keyB, BidRecord{Bidder: "carol", Amount: decimal.NewFromInt(7)}))

	listed, err := store.ListAuctions()
	check.Nil(t, err)
	check.Equal(t, 2, len(listed))
	check.Equal(t, keyA, listed[0].Key)
	check.Equal(t, keyB, listed[1].Key)
	check.False(t, listed[0].HasBid)
	check.True(t, listed[1].HasBid)
	check.Equal(t, "carol", listed[1].Bid.Bidder)
}
