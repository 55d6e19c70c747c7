// Command auctionctl is the operator client for auctiond. It sends one
// request per invocation over the one-shot connection protocol and prints
// the daemon's JSON response.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mdlayher/vsock"

	"github.com/cloudmarket-io/auctionhouse/api"
)

func main() {
	var (
		op        = flag.String("op", "", "Operation: ping, create, bid, update-reserve, withdraw, result, result-failed, cancel, get, highest-bid, list, pause, unpause")
		transport = flag.String("transport", "tcp", "Transport: tcp or vsock")
		addr      = flag.String("addr", "127.0.0.1:7650", "Daemon address (tcp)")
		vsockCID  = flag.Uint("vsock-cid", 3, "Context ID of the daemon VM (vsock)")
		vsockPort = flag.Uint("vsock-port", 7650, "Daemon port (vsock)")
		timeout   = flag.Duration("timeout", 10*time.Second, "Overall request timeout, including connect retries")

		caller     = flag.String("caller", "", "Acting address")
		contract   = flag.String("contract", "", "Asset contract address")
		tokenID    = flag.String("token-id", "", "Asset token ID")
		payTok     = flag.String("pay-token", "", "Pay token for create")
		reserve    = flag.String("reserve", "", "Reserve price (decimal string)")
		amount     = flag.String("amount", "", "Bid amount (decimal string)")
		startTime  = flag.Int64("start", 0, "Auction start time (unix seconds)")
		endTime    = flag.Int64("end", 0, "Auction end time (unix seconds)")
		withMinBid = flag.Bool("with-min-bid", false, "Set the minimum bid to the reserve price on create")
	)
	flag.Parse()

	request, err := buildRequest(*op, requestArgs{
		caller:     *caller,
		contract:   *contract,
		tokenID:    *tokenID,
		payToken:   *payTok,
		reserve:    *reserve,
		amount:     *amount,
		startTime:  *startTime,
		endTime:    *endTime,
		withMinBid: *withMinBid,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctionctl: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	response, err := send(ctx, *transport, *addr, uint32(*vsockCID), uint32(*vsockPort), request)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctionctl: %v\n", err)
		os.Exit(1)
	}

	pretty, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctionctl: format response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(pretty))

	if !response.Success {
		os.Exit(1)
	}
}

type requestArgs struct {
	caller     string
	contract   string
	tokenID    string
	payToken   string
	reserve    string
	amount     string
	startTime  int64
	endTime    int64
	withMinBid bool
}

func (a requestArgs) asset() (api.AssetRef, error) {
	if a.contract == "" || a.tokenID == "" {
		return api.AssetRef{}, fmt.Errorf("-contract and -token-id are required")
	}
	return api.AssetRef{AssetContract: a.contract, AssetID: a.tokenID}, nil
}

func (a requestArgs) assetOp(reqType string) (any, error) {
	asset, err := a.asset()
	if err != nil {
		return nil, err
	}
	if a.caller == "" && reqType != api.TypeGetAuction && reqType != api.TypeGetHighestBid {
		return nil, fmt.Errorf("-caller is required")
	}
	return api.AssetOpRequest{Type: reqType, Caller: a.caller, Asset: asset}, nil
}

func buildRequest(op string, args requestArgs) (any, error) {
	switch op {
	case "ping":
		return api.BaseRequest{Type: api.TypePing}, nil

	case "create":
		asset, err := args.asset()
		if err != nil {
			return nil, err
		}
		if args.caller == "" || args.payToken == "" || args.reserve == "" {
			return nil, fmt.Errorf("create requires -caller, -pay-token and -reserve")
		}
		if args.startTime == 0 || args.endTime == 0 {
			return nil, fmt.Errorf("create requires -start and -end")
		}
		return api.CreateAuctionRequest{
			Type:         api.TypeCreateAuction,
			Caller:       args.caller,
			Asset:        asset,
			PayToken:     args.payToken,
			ReservePrice: args.reserve,
			StartTime:    args.startTime,
			WithMinBid:   args.withMinBid,
			EndTime:      args.endTime,
		}, nil

	case "bid":
		asset, err := args.asset()
		if err != nil {
			return nil, err
		}
		if args.caller == "" || args.amount == "" {
			return nil, fmt.Errorf("bid requires -caller and -amount")
		}
		return api.PlaceBidRequest{
			Type:   api.TypePlaceBid,
			Caller: args.caller,
			Asset:  asset,
			Amount: args.amount,
		}, nil

	case "update-reserve":
		asset, err := args.asset()
		if err != nil {
			return nil, err
		}
		if args.caller == "" || args.reserve == "" {
			return nil, fmt.Errorf("update-reserve requires -caller and -reserve")
		}
		return api.UpdateReservePriceRequest{
			Type:            api.TypeUpdateReservePrice,
			Caller:          args.caller,
			Asset:           asset,
			NewReservePrice: args.reserve,
		}, nil

	case "withdraw":
		return args.assetOp(api.TypeWithdrawBid)
	case "result":
		return args.assetOp(api.TypeResultAuction)
	case "result-failed":
		return args.assetOp(api.TypeResultFailedAuction)
	case "cancel":
		return args.assetOp(api.TypeCancelAuction)
	case "get":
		return args.assetOp(api.TypeGetAuction)
	case "highest-bid":
		return args.assetOp(api.TypeGetHighestBid)

	case "list":
		return api.BaseRequest{Type: api.TypeListAuctions}, nil

	case "pause", "unpause":
		if args.caller == "" {
			return nil, fmt.Errorf("%s requires -caller", op)
		}
		return api.SetPausedRequest{
			Type:   api.TypeSetPaused,
			Caller: args.caller,
			Paused: op == "pause",
		}, nil

	case "":
		return nil, fmt.Errorf("missing -op")
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

// send dials the daemon, retrying the connection while it comes up, writes
// the request, half-closes the write side and reads the single response.
func send(ctx context.Context, transport, addr string, cid, port uint32, request any) (*api.Response, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	conn, err := backoff.Retry(ctx, func() (net.Conn, error) {
		return dial(transport, addr, cid, port)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	if err := closeWrite(conn); err != nil {
		return nil, fmt.Errorf("close write side: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response api.Response
	if err := json.Unmarshal(buf.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func dial(transport, addr string, cid, port uint32) (net.Conn, error) {
	switch transport {
	case "vsock":
		return vsock.Dial(cid, port, nil)
	case "tcp":
		return net.Dial("tcp", addr)
	default:
		return nil, backoff.Permanent(fmt.Errorf("unknown transport %q", transport))
	}
}

func closeWrite(conn net.Conn) error {
	type writeCloser interface {
		CloseWrite() error
	}
	if wc, ok := conn.(writeCloser); ok {
		return wc.CloseWrite()
	}
	return nil
}
