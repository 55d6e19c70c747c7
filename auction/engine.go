// Package auction implements the escrow-backed English auction engine: a
// keyed registry of per-asset auctions, a ledger of highest bids, and the
// lifecycle operations that drive every auction to exactly one of three
// terminal outcomes (cancelled, resulted, result-failed).
package auction

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloudmarket-io/auctionhouse/core"
	"github.com/cloudmarket-io/auctionhouse/custody"
	"github.com/cloudmarket-io/auctionhouse/registry"
)

// EngineConfig wires the engine's collaborators. Store, Ledger, Assets and
// Addresses are required; Tokens is optional (nil disables pay-token
// screening and leaves it to the caller).
type EngineConfig struct {
	Store     Store
	Ledger    custody.TokenLedger
	Assets    custody.AssetRegistry
	Addresses registry.AddressRegistry
	Tokens    registry.TokenRegistry
	Params    Params
	Events    EventSink
	Logger    *zap.Logger

	// Now supplies the ambient clock; defaults to time.Now. Read once per
	// invocation.
	Now func() time.Time
}

// Engine is the lifecycle controller. A single mutex serializes every
// operation, so each invocation observes the state left by its predecessor
// and runs to completion without interleaving.
type Engine struct {
	mu sync.Mutex

	store     Store
	ledger    custody.TokenLedger
	assets    custody.AssetRegistry
	addresses registry.AddressRegistry
	tokens    registry.TokenRegistry
	params    Params
	events    EventSink
	log       *zap.Logger
	now       func() time.Time

	paused bool
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine requires a store")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("engine requires a token ledger")
	}
	if cfg.Assets == nil {
		return nil, fmt.Errorf("engine requires an asset registry")
	}
	if cfg.Addresses == nil {
		return nil, fmt.Errorf("engine requires an address registry")
	}
	if cfg.Params.MinBidIncrement.IsZero() || cfg.Params.MinBidIncrement.IsNegative() {
		return nil, fmt.Errorf("minimum bid increment must be positive")
	}
	if cfg.Params.PlatformFeeBps < 0 || cfg.Params.PlatformFeeBps > 10000 {
		return nil, fmt.Errorf("platform fee %d bps out of range", cfg.Params.PlatformFeeBps)
	}
	if cfg.Params.EscrowAccount == "" {
		return nil, fmt.Errorf("engine requires an escrow account")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		assets:    cfg.Assets,
		addresses: cfg.Addresses,
		tokens:    cfg.Tokens,
		params:    cfg.Params,
		events:    cfg.Events,
		log:       cfg.Logger.Named("auction"),
		now:       cfg.Now,
	}, nil
}

// Params returns the engine's operating parameters.
func (e *Engine) Params() Params {
	return e.params
}

// CreateAuction escrows the asset and opens an auction on it.
func (e *Engine) CreateAuction(caller string, key core.AssetKey, payToken string, reservePrice decimal.Decimal, startTime time.Time, withMinBid bool, endTime time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := key.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAssetKey, err)
	}
	if e.paused {
		return ErrPaused
	}
	if e.tokens != nil && !e.tokens.IsAccepted(payToken) {
		return ErrPayTokenNotAllowed
	}

	// An escrowed asset is owned by the engine, so a second concurrent
	// auction on the same asset fails this ownership check.
	owner, err := e.assets.OwnerOf(key)
	if err != nil || owner != caller || !e.assets.IsApprovedForAll(caller, e.params.EscrowAccount) {
		return ErrNotOwnerOrApproved
	}
	if _, exists, err := e.store.GetAuction(key); err != nil {
		return fmt.Errorf("auction store: %w", err)
	} else if exists {
		return ErrNotOwnerOrApproved
	}

	now := e.now()
	startOK, durationOK := core.ValidWindow(now, startTime, endTime)
	if !startOK {
		return ErrInvalidStartTime
	}
	if !durationOK {
		return ErrInvalidEndTime
	}

	minBid := decimal.Zero
	if withMinBid {
		minBid = reservePrice
	}
	rec := AuctionRecord{
		Seller:       caller,
		PayToken:     payToken,
		ReservePrice: reservePrice,
		StartTime:    startTime,
		EndTime:      endTime,
		MinBid:       minBid,
	}

	if err := e.store.PutAuction(key, rec); err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	if err := e.assets.Transfer(key, caller, e.params.EscrowAccount); err != nil {
		e.rollbackStore(key, func() error { return e.store.DeleteAuctionAndBid(key) })
		return fmt.Errorf("escrow asset: %w", err)
	}

	e.log.Info("auction created",
		zap.String("asset", key.String()),
		zap.String("seller", caller),
		zap.String("pay_token", payToken),
		zap.String("reserve", reservePrice.String()))
	e.emit(AuctionCreated{Key: key, PayToken: payToken})
	return nil
}

// PlaceBid escrows the bidder's funds, refunds the superseded bidder in the
// same invocation, and records the new highest bid.
func (e *Engine) PlaceBid(caller string, key core.AssetKey, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, exists, err := e.store.GetAuction(key)
	if err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	if !exists || rec.Resulted {
		return ErrNoAuction
	}

	now := e.now()
	if !core.InWindow(now, rec.StartTime, rec.EndTime) {
		return ErrBidOutsideWindow
	}

	prev, hadBid, err := e.store.GetBid(key)
	if err != nil {
		return fmt.Errorf("bid ledger: %w", err)
	}
	currentBid := decimal.Zero
	if hadBid {
		currentBid = prev.Amount
	}
	if !core.MeetsIncrement(amount, currentBid, e.params.MinBidIncrement) {
		return ErrBidTooLow
	}
	if rec.MinBid.IsPositive() && amount.LessThan(rec.MinBid) {
		return ErrBidBelowMinBid
	}

	// Pull the new escrow first, then record, then refund; every step
	// after the pull can be compensated out of funds the engine holds.
	if err := e.ledger.Transfer(rec.PayToken, caller, e.params.EscrowAccount, amount); err != nil {
		return fmt.Errorf("escrow bid: %w", err)
	}

	newBid := BidRecord{Bidder: caller, Amount: amount, LastBidTime: now}
	if err := e.store.PutBid(key, newBid); err != nil {
		e.compensateTransfer(rec.PayToken, caller, amount)
		return fmt.Errorf("bid ledger: %w", err)
	}

	if hadBid {
		if err := e.ledger.Transfer(rec.PayToken, e.params.EscrowAccount, prev.Bidder, prev.Amount); err != nil {
			e.rollbackStore(key, func() error { return e.store.PutBid(key, prev) })
			e.compensateTransfer(rec.PayToken, caller, amount)
			return fmt.Errorf("refund outbid bidder: %w", err)
		}
		e.log.Info("outbid refunded",
			zap.String("asset", key.String()),
			zap.String("bidder", prev.Bidder),
			zap.String("amount", prev.Amount.String()))
	}

	e.log.Info("bid placed",
		zap.String("asset", key.String()),
		zap.String("bidder", caller),
		zap.String("amount", amount.String()))
	e.emit(BidPlaced{Key: key, Bidder: caller, Amount: amount})
	return nil
}

// UpdateReservePrice lowers the reserve price of the caller's auction.
func (e *Engine) UpdateReservePrice(caller string, key core.AssetKey, newReserve decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, exists, err := e.store.GetAuction(key)
	if err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	if !exists || rec.Seller != caller {
		return ErrNotSellerInEscrow
	}
	if owner, err := e.assets.OwnerOf(key); err != nil || owner != e.params.EscrowAccount {
		return ErrNotSellerInEscrow
	}
	if newReserve.GreaterThan(rec.ReservePrice) {
		return ErrReserveIncrease
	}

	rec.ReservePrice = newReserve
	if err := e.store.PutAuction(key, rec); err != nil {
		return fmt.Errorf("auction store: %w", err)
	}

	e.log.Info("reserve price updated",
		zap.String("asset", key.String()),
		zap.String("new_reserve", newReserve.String()))
	e.emit(ReservePriceUpdated{Key: key, PayToken: rec.PayToken, NewReserve: newReserve})
	return nil
}

// ResultAuction settles a successful auction: the winning bid met the
// reserve, the asset goes to the winner, the proceeds minus the platform fee
// go to the seller.
func (e *Engine) ResultAuction(caller string, key core.AssetKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, exists, err := e.store.GetAuction(key)
	if err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	if !exists || rec.Resulted {
		return ErrNoAuction
	}
	if !e.now().After(rec.EndTime) {
		return ErrAuctionNotEnded
	}

	bid, hasBid, err := e.store.GetBid(key)
	if err != nil {
		return fmt.Errorf("bid ledger: %w", err)
	}
	if caller != rec.Seller && (!hasBid || caller != bid.Bidder) {
		return ErrNotWinnerOrSeller
	}
	if !hasBid || !bid.HasBid() {
		return ErrNoOpenBids
	}
	if !core.MeetsReserve(bid.Amount, rec.ReservePrice) {
		return ErrBidBelowReserve
	}

	fee, proceeds := core.SplitProceeds(bid.Amount, e.params.PlatformFeeBps)
	feeRecipient := e.addresses.FeeRecipient()
	escrow := e.params.EscrowAccount

	// Internal state first, external transfers last; each transfer is
	// undone in reverse if a later one fails.
	if err := e.store.DeleteAuctionAndBid(key); err != nil {
		return fmt.Errorf("auction store: %w", err)
	}

	restore := func() {
		e.rollbackStore(key, func() error {
			if err := e.store.PutAuction(key, rec); err != nil {
				return err
			}
			return e.store.PutBid(key, bid)
		})
	}

	if err := e.assets.Transfer(key, escrow, bid.Bidder); err != nil {
		restore()
		return fmt.Errorf("deliver asset: %w", err)
	}
	if fee.IsPositive() {
		if err := e.ledger.Transfer(rec.PayToken, escrow, feeRecipient, fee); err != nil {
			e.compensateAsset(key, bid.Bidder)
			restore()
			return fmt.Errorf("pay platform fee: %w", err)
		}
	}
	if err := e.ledger.Transfer(rec.PayToken, escrow, rec.Seller, proceeds); err != nil {
		if fee.IsPositive() {
			e.compensateTransfer(rec.PayToken, feeRecipient, fee)
		}
		e.compensateAsset(key, bid.Bidder)
		restore()
		return fmt.Errorf("pay seller: %w", err)
	}

	e.log.Info("auction resulted",
		zap.String("asset", key.String()),
		zap.String("seller", rec.Seller),
		zap.String("winner", bid.Bidder),
		zap.String("winning_bid", bid.Amount.String()),
		zap.String("fee", fee.String()))
	e.emit(AuctionResulted{
		Key:        key,
		Seller:     rec.Seller,
		Winner:     bid.Bidder,
		PayToken:   rec.PayToken,
		UnitPrice:  bid.Amount,
		WinningBid: bid.Amount,
	})
	return nil
}

// ResultFailedAuction concludes an auction whose highest bid fell short of
// the reserve: the bidder is refunded and the asset returns to the seller.
func (e *Engine) ResultFailedAuction(caller string, key core.AssetKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, exists, err := e.store.GetAuction(key)
	if err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	if !exists || rec.Resulted {
		return ErrNoAuction
	}
	if !e.now().After(rec.EndTime) {
		return ErrAuctionNotEnded
	}

	bid, hasBid, err := e.store.GetBid(key)
	if err != nil {
		return fmt.Errorf("bid ledger: %w", err)
	}
	if caller != rec.Seller && (!hasBid || caller != bid.Bidder) {
		return ErrNotWinnerOrSeller
	}
	if !hasBid || !bid.HasBid() {
		return ErrNoOpenBids
	}
	if core.MeetsReserve(bid.Amount, rec.ReservePrice) {
		return ErrBidMeetsReserve
	}

	if err := e.store.DeleteAuctionAndBid(key); err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	restore := func() {
		e.rollbackStore(key, func() error {
			if err := e.store.PutAuction(key, rec); err != nil {
				return err
			}
			return e.store.PutBid(key, bid)
		})
	}

	escrow := e.params.EscrowAccount
	if err := e.ledger.Transfer(rec.PayToken, escrow, bid.Bidder, bid.Amount); err != nil {
		restore()
		return fmt.Errorf("refund bidder: %w", err)
	}
	if err := e.assets.Transfer(key, escrow, rec.Seller); err != nil {
		e.compensateTransfer(rec.PayToken, bid.Bidder, bid.Amount)
		restore()
		return fmt.Errorf("return asset: %w", err)
	}

	e.log.Info("auction failed reserve",
		zap.String("asset", key.String()),
		zap.String("seller", rec.Seller),
		zap.String("bidder", bid.Bidder),
		zap.String("top_bid", bid.Amount.String()))
	e.emit(AuctionFailed{
		Key:      key,
		Seller:   rec.Seller,
		Bidder:   bid.Bidder,
		PayToken: rec.PayToken,
		TopBid:   bid.Amount,
	})
	return nil
}

// CancelAuction aborts an auction that has not attracted a bid at or above
// the reserve. Works before or after the window closes.
func (e *Engine) CancelAuction(caller string, key core.AssetKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, exists, err := e.store.GetAuction(key)
	if err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	if !exists || rec.Seller != caller {
		return ErrNotSeller
	}

	bid, hasBid, err := e.store.GetBid(key)
	if err != nil {
		return fmt.Errorf("bid ledger: %w", err)
	}
	if hasBid && bid.HasBid() && core.MeetsReserve(bid.Amount, rec.ReservePrice) {
		return ErrBidAboveReserve
	}

	if err := e.store.DeleteAuctionAndBid(key); err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	restore := func() {
		e.rollbackStore(key, func() error {
			if err := e.store.PutAuction(key, rec); err != nil {
				return err
			}
			if hasBid {
				return e.store.PutBid(key, bid)
			}
			return nil
		})
	}

	escrow := e.params.EscrowAccount
	if hasBid && bid.HasBid() {
		if err := e.ledger.Transfer(rec.PayToken, escrow, bid.Bidder, bid.Amount); err != nil {
			restore()
			return fmt.Errorf("refund bidder: %w", err)
		}
	}
	if err := e.assets.Transfer(key, escrow, rec.Seller); err != nil {
		if hasBid && bid.HasBid() {
			e.compensateTransfer(rec.PayToken, bid.Bidder, bid.Amount)
		}
		restore()
		return fmt.Errorf("return asset: %w", err)
	}

	e.log.Info("auction cancelled",
		zap.String("asset", key.String()),
		zap.String("seller", caller))
	e.emit(AuctionCancelled{Key: key})
	return nil
}

// WithdrawBid lets the highest bidder reclaim their escrowed funds once the
// post-end grace period has elapsed. The auction record stays open and
// becomes unconditionally cancellable by the seller.
func (e *Engine) WithdrawBid(caller string, key core.AssetKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, exists, err := e.store.GetAuction(key)
	if err != nil {
		return fmt.Errorf("auction store: %w", err)
	}
	if !exists {
		return ErrNoAuction
	}

	bid, hasBid, err := e.store.GetBid(key)
	if err != nil {
		return fmt.Errorf("bid ledger: %w", err)
	}
	if !hasBid || !bid.HasBid() || bid.Bidder != caller {
		return ErrNotHighestBidder
	}
	if !core.WithdrawAllowed(e.now(), rec.EndTime) {
		return ErrGraceNotElapsed
	}

	if err := e.store.DeleteBid(key); err != nil {
		return fmt.Errorf("bid ledger: %w", err)
	}
	if err := e.ledger.Transfer(rec.PayToken, e.params.EscrowAccount, caller, bid.Amount); err != nil {
		e.rollbackStore(key, func() error { return e.store.PutBid(key, bid) })
		return fmt.Errorf("refund bidder: %w", err)
	}

	e.log.Info("bid withdrawn",
		zap.String("asset", key.String()),
		zap.String("bidder", caller),
		zap.String("amount", bid.Amount.String()))
	e.emit(BidWithdrawn{Key: key, Bidder: caller, Amount: bid.Amount})
	return nil
}

// SetPaused toggles the administrative pause gating auction creation.
func (e *Engine) SetPaused(caller string, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.Admin {
		return ErrNotAdmin
	}
	if e.paused == paused {
		return nil
	}
	e.paused = paused

	e.log.Info("pause toggled", zap.Bool("paused", paused))
	e.emit(PauseToggled{Paused: paused, At: e.now()})
	return nil
}

// Paused reports the administrative pause state.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// GetAuction returns the read-only projection of an auction.
func (e *Engine) GetAuction(key core.AssetKey) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, exists, err := e.store.GetAuction(key)
	if err != nil {
		return View{}, fmt.Errorf("auction store: %w", err)
	}
	if !exists {
		return View{}, ErrNoAuction
	}
	return View{
		Key:          key,
		Seller:       rec.Seller,
		PayToken:     rec.PayToken,
		ReservePrice: rec.ReservePrice,
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		MinBid:       rec.MinBid,
		Resulted:     rec.Resulted,
	}, nil
}

// GetHighestBid returns the current highest bid on an auction, or
// ErrNoAuction if none is open on the key.
func (e *Engine) GetHighestBid(key core.AssetKey) (BidRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists, err := e.store.GetAuction(key); err != nil {
		return BidRecord{}, fmt.Errorf("auction store: %w", err)
	} else if !exists {
		return BidRecord{}, ErrNoAuction
	}
	bid, _, err := e.store.GetBid(key)
	if err != nil {
		return BidRecord{}, fmt.Errorf("bid ledger: %w", err)
	}
	return bid, nil
}

// ListAuctions returns every open auction with its current bid.
func (e *Engine) ListAuctions() ([]ListedAuction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ListAuctions()
}

func (e *Engine) emit(ev Event) {
	if e.events != nil {
		e.events.Publish(ev)
	}
}

// compensateTransfer returns funds from escrow to a holder while unwinding a
// partially applied operation. A compensation failure is unrecoverable
// in-process and is logged at error level.
func (e *Engine) compensateTransfer(token, to string, amount decimal.Decimal) {
	if err := e.ledger.Transfer(token, e.params.EscrowAccount, to, amount); err != nil {
		e.log.Error("compensating transfer failed",
			zap.String("token", token),
			zap.String("to", to),
			zap.String("amount", amount.String()),
			zap.Error(err))
	}
}

// compensateAsset pulls an asset back into escrow while unwinding a
// partially applied settlement.
func (e *Engine) compensateAsset(key core.AssetKey, from string) {
	if err := e.assets.Transfer(key, from, e.params.EscrowAccount); err != nil {
		e.log.Error("compensating asset transfer failed",
			zap.String("asset", key.String()),
			zap.String("from", from),
			zap.Error(err))
	}
}

func (e *Engine) rollbackStore(key core.AssetKey, fn func() error) {
	if err := fn(); err != nil {
		e.log.Error("store rollback failed",
			zap.String("asset", key.String()),
			zap.Error(err))
	}
}
