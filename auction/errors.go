package auction

import "errors"

// Sentinel errors for every failure signal the engine emits. All are
// rejected before any custody movement; callers match with errors.Is.
var (
	// Creation
	ErrInvalidAssetKey    = errors.New("invalid asset key")
	ErrNotOwnerOrApproved = errors.New("not asset owner or engine not approved")
	ErrInvalidStartTime   = errors.New("invalid start time")
	ErrInvalidEndTime     = errors.New("end time must exceed start time by at least 5 minutes")
	ErrPaused             = errors.New("engine paused")
	ErrPayTokenNotAllowed = errors.New("pay token not accepted")

	// Bidding
	ErrNoAuction        = errors.New("no auction exists")
	ErrBidOutsideWindow = errors.New("bidding outside auction window")
	ErrBidTooLow        = errors.New("failed to outbid highest bidder")
	ErrBidBelowMinBid   = errors.New("bid below minimum bid")

	// Reserve administration
	ErrNotSellerInEscrow = errors.New("sender must be seller with asset in escrow")
	ErrReserveIncrease   = errors.New("reserve price can only be decreased")

	// Settlement
	ErrAuctionNotEnded   = errors.New("auction not ended")
	ErrNotWinnerOrSeller = errors.New("sender must be auction winner or seller")
	ErrNoOpenBids        = errors.New("no open bids")
	ErrBidBelowReserve   = errors.New("highest bid is below reserve price")
	ErrBidMeetsReserve   = errors.New("highest bid meets reserve price")

	// Cancellation
	ErrNotSeller       = errors.New("sender must be seller")
	ErrBidAboveReserve = errors.New("highest bid is currently above reserve price")

	// Withdrawal
	ErrNotHighestBidder = errors.New("sender is not the highest bidder")
	ErrGraceNotElapsed  = errors.New("bid may be withdrawn only 12 hours after auction end")

	// Administration
	ErrNotAdmin = errors.New("sender is not the admin")
)
