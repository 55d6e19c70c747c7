package server

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloudmarket-io/auctionhouse/api"
	"github.com/cloudmarket-io/auctionhouse/auction"
	"github.com/cloudmarket-io/auctionhouse/core"
)

// Dispatch decodes one request and executes it against the engine.
func (s *Server) Dispatch(raw []byte) api.Response {
	requestID := uuid.NewString()

	var base api.BaseRequest
	if err := json.Unmarshal(raw, &base); err != nil {
		return s.failure(requestID, "error", "malformed request: "+err.Error())
	}

	s.log.Debug("request received",
		zap.String("request_id", requestID),
		zap.String("type", base.Type))

	switch base.Type {
	case api.TypePing:
		resp := s.success(requestID, "pong")
		resp.Message = "auction daemon is healthy"
		return resp

	case api.TypeCreateAuction:
		var req api.CreateAuctionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return s.failure(requestID, base.Type, "malformed request: "+err.Error())
		}
		reserve, err := api.ParseAmount("reserve_price", req.ReservePrice)
		if err != nil {
			return s.failure(requestID, base.Type, err.Error())
		}
		err = s.engine.CreateAuction(
			req.Caller,
			core.NewAssetKey(req.Asset.AssetContract, req.Asset.AssetID),
			req.PayToken,
			reserve,
			api.ParseTime(req.StartTime),
			req.WithMinBid,
			api.ParseTime(req.EndTime),
		)
		return s.outcome(requestID, base.Type, err)

	case api.TypePlaceBid:
		var req api.PlaceBidRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return s.failure(requestID, base.Type, "malformed request: "+err.Error())
		}
		amount, err := api.ParseAmount("amount", req.Amount)
		if err != nil {
			return s.failure(requestID, base.Type, err.Error())
		}
		err = s.engine.PlaceBid(req.Caller, assetKey(req.Asset), amount)
		return s.outcome(requestID, base.Type, err)

	case api.TypeUpdateReservePrice:
		var req api.UpdateReservePriceRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return s.failure(requestID, base.Type, "malformed request: "+err.Error())
		}
		newReserve, err := api.ParseAmount("new_reserve_price", req.NewReservePrice)
		if err != nil {
			return s.failure(requestID, base.Type, err.Error())
		}
		err = s.engine.UpdateReservePrice(req.Caller, assetKey(req.Asset), newReserve)
		return s.outcome(requestID, base.Type, err)

	case api.TypeWithdrawBid:
		req, resp := s.decodeAssetOp(requestID, base.Type, raw)
		if resp != nil {
			return *resp
		}
		return s.outcome(requestID, base.Type, s.engine.WithdrawBid(req.Caller, assetKey(req.Asset)))

	case api.TypeResultAuction:
		req, resp := s.decodeAssetOp(requestID, base.Type, raw)
		if resp != nil {
			return *resp
		}
		return s.outcome(requestID, base.Type, s.engine.ResultAuction(req.Caller, assetKey(req.Asset)))

	case api.TypeResultFailedAuction:
		req, resp := s.decodeAssetOp(requestID, base.Type, raw)
		if resp != nil {
			return *resp
		}
		return s.outcome(requestID, base.Type, s.engine.ResultFailedAuction(req.Caller, assetKey(req.Asset)))

	case api.TypeCancelAuction:
		req, resp := s.decodeAssetOp(requestID, base.Type, raw)
		if resp != nil {
			return *resp
		}
		return s.outcome(requestID, base.Type, s.engine.CancelAuction(req.Caller, assetKey(req.Asset)))

	case api.TypeGetAuction:
		req, resp := s.decodeAssetOp(requestID, base.Type, raw)
		if resp != nil {
			return *resp
		}
		view, err := s.engine.GetAuction(assetKey(req.Asset))
		if err != nil {
			return s.failure(requestID, base.Type, err.Error())
		}
		out := s.success(requestID, base.Type)
		out.Auction = auctionView(view)
		return out

	case api.TypeGetHighestBid:
		req, resp := s.decodeAssetOp(requestID, base.Type, raw)
		if resp != nil {
			return *resp
		}
		bid, err := s.engine.GetHighestBid(assetKey(req.Asset))
		if err != nil {
			return s.failure(requestID, base.Type, err.Error())
		}
		out := s.success(requestID, base.Type)
		out.Bid = bidView(bid)
		return out

	case api.TypeListAuctions:
		listed, err := s.engine.ListAuctions()
		if err != nil {
			return s.failure(requestID, base.Type, err.Error())
		}
		out := s.success(requestID, base.Type)
		out.Auctions = make([]api.ListedAuctionView, 0, len(listed))
		for _, entry := range listed {
			item := api.ListedAuctionView{
				Auction: *auctionView(auction.View{
					Key:          entry.Key,
					Seller:       entry.Auction.Seller,
					PayToken:     entry.Auction.PayToken,
					ReservePrice: entry.Auction.ReservePrice,
					StartTime:    entry.Auction.StartTime,
					EndTime:      entry.Auction.EndTime,
					MinBid:       entry.Auction.MinBid,
					Resulted:     entry.Auction.Resulted,
				}),
			}
			if entry.HasBid {
				item.Bid = bidView(entry.Bid)
			}
			out.Auctions = append(out.Auctions, item)
		}
		return out

	case api.TypeSetPaused:
		var req api.SetPausedRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return s.failure(requestID, base.Type, "malformed request: "+err.Error())
		}
		return s.outcome(requestID, base.Type, s.engine.SetPaused(req.Caller, req.Paused))

	default:
		return s.failure(requestID, "error", "unknown request type: "+base.Type)
	}
}

func (s *Server) decodeAssetOp(requestID, reqType string, raw []byte) (api.AssetOpRequest, *api.Response) {
	var req api.AssetOpRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		resp := s.failure(requestID, reqType, "malformed request: "+err.Error())
		return req, &resp
	}
	return req, nil
}

func (s *Server) outcome(requestID, reqType string, err error) api.Response {
	if err != nil {
		return s.failure(requestID, reqType, err.Error())
	}
	return s.success(requestID, reqType)
}

func (s *Server) success(requestID, reqType string) api.Response {
	return api.Response{
		Type:      reqType + "_response",
		RequestID: requestID,
		Success:   true,
		Timestamp: time.Now().Unix(),
	}
}

func (s *Server) failure(requestID, reqType, message string) api.Response {
	s.log.Debug("request rejected",
		zap.String("request_id", requestID),
		zap.String("type", reqType),
		zap.String("reason", message))
	return api.Response{
		Type:      reqType + "_response",
		RequestID: requestID,
		Success:   false,
		Message:   message,
		Timestamp: time.Now().Unix(),
	}
}

func assetKey(ref api.AssetRef) core.AssetKey {
	return core.NewAssetKey(ref.AssetContract, ref.AssetID)
}

func auctionView(view auction.View) *api.AuctionView {
	return &api.AuctionView{
		Asset: api.AssetRef{
			AssetContract: view.Key.Contract,
			AssetID:       view.Key.TokenID,
		},
		Seller:       view.Seller,
		PayToken:     view.PayToken,
		ReservePrice: view.ReservePrice.String(),
		StartTime:    view.StartTime.Unix(),
		EndTime:      view.EndTime.Unix(),
		MinBid:       view.MinBid.String(),
		Resulted:     view.Resulted,
	}
}

func bidView(bid auction.BidRecord) *api.BidView {
	view := &api.BidView{
		Bidder: bid.Bidder,
		HasBid: bid.HasBid(),
	}
	if bid.HasBid() {
		view.Amount = bid.Amount.String()
		view.LastBidTime = bid.LastBidTime.Unix()
	}
	return view
}
