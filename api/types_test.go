package api

import (
	"encoding/json"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestBaseRequestPeek(t *testing.T) {
	raw := []byte(`{"type":"place_bid","caller":"bob","asset":{"asset_contract":"0xabc","asset_id":"7"},"amount":"25.5"}`)

	var base BaseRequest
	assert.Nil(t, json.Unmarshal(raw, &base))
	check.Equal(t, TypePlaceBid, base.Type)

	var req PlaceBidRequest
	assert.Nil(t, json.Unmarshal(raw, &req))
	check.Equal(t, "bob", req.Caller)
	check.Equal(t, "0xabc", req.Asset.AssetContract)
	check.Equal(t, "7", req.Asset.AssetID)
	check.Equal(t, "25.5", req.Amount)
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount("amount", "25.5")
	assert.Nil(t, err)
	check.Equal(t, "25.5", amount.String())

	_, err = ParseAmount("amount", "two dozen")
	check.NotNil(t, err)
}

func TestParseTime(t *testing.T) {
	ts := ParseTime(1717243200)
	check.Equal(t, int64(1717243200), ts.Unix())
	check.Equal(t, "UTC", ts.Location().String())
}

func TestResponseOmitsEmptySections(t *testing.T) {
	data, err := json.Marshal(Response{
		Type:      "place_bid_response",
		RequestID: "r1",
		Success:   true,
	})
	assert.Nil(t, err)

	var decoded map[string]any
	assert.Nil(t, json.Unmarshal(data, &decoded))
	_, hasAuction := decoded["auction"]
	check.False(t, hasAuction)
	_, hasBid := decoded["bid"]
	check.False(t, hasBid)
}
