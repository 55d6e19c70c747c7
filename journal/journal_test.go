package journal

import (
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudmarket-io/auctionhouse/auction"
	"github.com/cloudmarket-io/auctionhouse/core"
)

func TestJournal_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.journal")

	j, err := Open(path, nil)
	assert.Nil(t, err)

	key := core.NewAssetKey("0xabc", "7")
	j.Publish(auction.AuctionCreated{Key: key, PayToken: "wftm"})
	j.Publish(auction.BidPlaced{Key: key, Bidder: "bob", Amount: decimal.RequireFromString("25.5")})
	assert.Nil(t, j.Close())

	entries, err := Read(path)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(entries))

	check.Equal(t, "auction_created", entries[0].Name)
	check.Equal(t, "bid_placed", entries[1].Name)
	check.NotEqual(t, entries[0].ID, entries[1].ID)

	var placed auction.BidPlaced
	assert.Nil(t, entries[1].Decode(&placed))
	check.Equal(t, "bob", placed.Bidder)
	check.Equal(t, key, placed.Key)
	check.True(t, placed.Amount.Equal(decimal.RequireFromString("25.5")))
}

func TestJournal_AppendAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.journal")
	key := core.NewAssetKey("0xabc", "7")

	j, err := Open(path, nil)
	assert.Nil(t, err)
	j.Publish(auction.AuctionCreated{Key: key, PayToken: "wftm"})
	assert.Nil(t, j.Close())

	j, err = Open(path, nil)
	assert.Nil(t, err)
	j.Publish(auction.AuctionCancelled{Key: key})
	assert.Nil(t, j.Close())

	entries, err := Read(path)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(entries))
	check.Equal(t, "auction_created", entries[0].Name)
	check.Equal(t, "auction_cancelled", entries[1].Name)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.journal"))
	check.NotNil(t, err)
}
