package core

import (
	"time"
)

const (
	// MinAuctionDuration is the shortest allowed bidding window.
	MinAuctionDuration = 300 * time.Second

	// WithdrawGracePeriod is how long after an auction ends the highest
	// bidder must wait before withdrawing their bid.
	WithdrawGracePeriod = 12 * time.Hour
)

// ValidWindow reports whether a proposed auction window is acceptable at
// creation time: the start must be strictly in the future and the window at
// least MinAuctionDuration long.
func ValidWindow(now, start, end time.Time) (startOK, durationOK bool) {
	startOK = start.After(now)
	durationOK = end.Sub(start) >= MinAuctionDuration
	return startOK, durationOK
}

// InWindow reports whether now falls inside the inclusive bidding window.
func InWindow(now, start, end time.Time) bool {
	return !now.Before(start) && !now.After(end)
}

// WithdrawAllowed reports whether the post-end grace period has fully
// elapsed. The boundary itself is exclusive: withdrawal opens strictly after
// endTime + WithdrawGracePeriod.
func WithdrawAllowed(now, end time.Time) bool {
	return now.After(end.Add(WithdrawGracePeriod))
}
