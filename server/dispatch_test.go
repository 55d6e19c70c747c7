package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloudmarket-io/auctionhouse/api"
	"github.com/cloudmarket-io/auctionhouse/auction"
	"github.com/cloudmarket-io/auctionhouse/core"
	"github.com/cloudmarket-io/auctionhouse/custody"
	"github.com/cloudmarket-io/auctionhouse/registry"
)

const (
	seller     = "alice"
	bidder     = "bob"
	adminAcct  = "admin"
	escrowAcct = "auctionhouse:escrow"
	treasury   = "treasury"
	payToken   = "wftm"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

type fixture struct {
	server *Server
	ledger *custody.MemoryLedger
	assets *custody.MemoryAssetRegistry
	clock  *testClock
	key    core.AssetKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ledger: custody.NewMemoryLedger(),
		assets: custody.NewMemoryAssetRegistry(),
		clock:  &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		key:    core.NewAssetKey("0xc0ffee", "7"),
	}

	engine, err := auction.NewEngine(auction.EngineConfig{
		Store:     auction.NewMemoryStore(),
		Ledger:    f.ledger,
		Assets:    f.assets,
		Addresses: registry.NewMemoryAddressRegistry(treasury),
		Tokens:    registry.NewMemoryTokenRegistry(payToken),
		Params: auction.Params{
			MinBidIncrement: decimal.NewFromInt(1),
			PlatformFeeBps:  250,
			EscrowAccount:   escrowAcct,
			Admin:           adminAcct,
		},
		Now: f.clock.Now,
	})
	assert.Nil(t, err)

	assert.Nil(t, f.assets.Mint(f.key, seller))
	f.assets.SetApprovalForAll(seller, escrowAcct, true)
	f.ledger.Mint(payToken, bidder, decimal.NewFromInt(1000))

	f.server = New(engine, zap.NewNop(), Options{})
	return f
}

func (f *fixture) dispatch(t *testing.T, request string) api.Response {
	t.Helper()
	return f.server.Dispatch([]byte(request))
}

func (f *fixture) createAuction(t *testing.T) (start, end int64) {
	t.Helper()
	start = f.clock.now.Add(5 * time.Second).Unix()
	end = start + int64(core.MinAuctionDuration/time.Second)
	resp := f.dispatch(t, fmt.Sprintf(
		`{"type":"create_auction","caller":%q,"asset":{"asset_contract":"0xc0ffee","asset_id":"7"},"pay_token":%q,"reserve_price":"20","start_time":%d,"end_time":%d}`,
		seller, payToken, start, end))
	assert.True(t, resp.Success)
	return start, end
}

func TestDispatch_Ping(t *testing.T) {
	f := newFixture(t)

	resp := f.dispatch(t, `{"type":"ping"}`)
	check.True(t, resp.Success)
	check.Equal(t, "pong_response", resp.Type)
	check.NotEqual(t, "", resp.RequestID)
}

func TestDispatch_MalformedJSON(t *testing.T) {
	f := newFixture(t)

	resp := f.dispatch(t, `{"type":`)
	check.False(t, resp.Success)
	check.Equal(t, "error_response", resp.Type)
}

func TestDispatch_UnknownType(t *testing.T) {
	f := newFixture(t)

	resp := f.dispatch(t, `{"type":"mystery"}`)
	check.False(t, resp.Success)
	check.Equal(t, "unknown request type: mystery", resp.Message)
}

func TestDispatch_CreateAndGetAuction(t *testing.T) {
	f := newFixture(t)
	start, end := f.createAuction(t)

	owner, err := f.assets.OwnerOf(f.key)
	assert.Nil(t, err)
	check.Equal(t, escrowAcct, owner)

	resp := f.dispatch(t,
		`{"type":"get_auction","asset":{"asset_contract":"0xc0ffee","asset_id":"7"}}`)
	assert.True(t, resp.Success)
	check.Equal(t, "get_auction_response", resp.Type)
	assert.NotNil(t, resp.Auction)
	check.Equal(t, seller, resp.Auction.Seller)
	check.Equal(t, "20", resp.Auction.ReservePrice)
	check.Equal(t, start, resp.Auction.StartTime)
	check.Equal(t, end, resp.Auction.EndTime)
}

func TestDispatch_PlaceBidAndGetHighestBid(t *testing.T) {
	f := newFixture(t)
	start, _ := f.createAuction(t)
	f.clock.now = time.Unix(start, 0).UTC()

	resp := f.dispatch(t, fmt.Sprintf(
		`{"type":"place_bid","caller":%q,"asset":{"asset_contract":"0xc0ffee","asset_id":"7"},"amount":"25"}`,
		bidder))
	assert.True(t, resp.Success)
	check.True(t, f.ledger.Balance(payToken, escrowAcct).Equal(decimal.NewFromInt(25)))

	got := f.dispatch(t,
		`{"type":"get_highest_bid","asset":{"asset_contract":"0xc0ffee","asset_id":"7"}}`)
	assert.True(t, got.Success)
	assert.NotNil(t, got.Bid)
	check.Equal(t, bidder, got.Bid.Bidder)
	check.Equal(t, "25", got.Bid.Amount)
	check.True(t, got.Bid.HasBid)
}

func TestDispatch_EngineErrorsSurfaceAsMessages(t *testing.T) {
	f := newFixture(t)

	resp := f.dispatch(t,
		`{"type":"place_bid","caller":"bob","asset":{"asset_contract":"0xmissing","asset_id":"1"},"amount":"5"}`)
	check.False(t, resp.Success)
	check.Equal(t, auction.ErrNoAuction.Error(), resp.Message)
}

func TestDispatch_BadAmountRejectedBeforeEngine(t *testing.T) {
	f := newFixture(t)
	f.createAuction(t)

	resp := f.dispatch(t,
		`{"type":"place_bid","caller":"bob","asset":{"asset_contract":"0xc0ffee","asset_id":"7"},"amount":"lots"}`)
	check.False(t, resp.Success)
	check.True(t, strings.Contains(resp.Message, "invalid amount"))
}

func TestDispatch_ListAuctions(t *testing.T) {
	f := newFixture(t)
	f.createAuction(t)

	resp := f.dispatch(t, `{"type":"list_auctions"}`)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, len(resp.Auctions))
	check.Equal(t, "0xc0ffee", resp.Auctions[0].Auction.Asset.AssetContract)
	check.Nil(t, resp.Auctions[0].Bid)
}

func TestDispatch_SetPaused(t *testing.T) {
	f := newFixture(t)

	resp := f.dispatch(t, `{"type":"set_paused","caller":"mallory","paused":true}`)
	check.False(t, resp.Success)
	check.Equal(t, auction.ErrNotAdmin.Error(), resp.Message)

	resp = f.dispatch(t, fmt.Sprintf(`{"type":"set_paused","caller":%q,"paused":true}`, adminAcct))
	check.True(t, resp.Success)
}

func TestDispatch_ResponseRoundTripsOverJSON(t *testing.T) {
	f := newFixture(t)
	f.createAuction(t)

	resp := f.dispatch(t,
		`{"type":"get_auction","asset":{"asset_contract":"0xc0ffee","asset_id":"7"}}`)
	data, err := json.Marshal(resp)
	assert.Nil(t, err)

	var decoded map[string]any
	assert.Nil(t, json.Unmarshal(data, &decoded))
	check.Equal(t, "get_auction_response", decoded["type"])
	check.Equal(t, true, decoded["success"])
}
