package auction

import (
	"sort"
	"sync"

	"github.com/cloudmarket-io/auctionhouse/core"
)

// Store persists auction and bid records. Implementations must make
// DeleteAuctionAndBid atomic: a terminal transition removes both records or
// neither.
type Store interface {
	GetAuction(key core.AssetKey) (AuctionRecord, bool, error)
	PutAuction(key core.AssetKey, rec AuctionRecord) error
	GetBid(key core.AssetKey) (BidRecord, bool, error)
	PutBid(key core.AssetKey, bid BidRecord) error
	DeleteBid(key core.AssetKey) error
	DeleteAuctionAndBid(key core.AssetKey) error

	// ListAuctions returns every open auction with its current bid, if
	// any, sorted by asset key for deterministic output.
	ListAuctions() ([]ListedAuction, error)
}

// ListedAuction pairs an auction record with its (possibly empty) bid.
type ListedAuction struct {
	Key     core.AssetKey
	Auction AuctionRecord
	Bid     BidRecord
	HasBid  bool
}

// MemoryStore is the in-memory Store used by tests and single-run daemons.
type MemoryStore struct {
	mu       sync.Mutex
	auctions map[core.AssetKey]AuctionRecord
	bids     map[core.AssetKey]BidRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[core.AssetKey]AuctionRecord),
		bids:     make(map[core.AssetKey]BidRecord),
	}
}

func (s *MemoryStore) GetAuction(key core.AssetKey) (AuctionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.auctions[key]
	return rec, ok, nil
}

func (s *MemoryStore) PutAuction(key core.AssetKey, rec AuctionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[key] = rec
	return nil
}

func (s *MemoryStore) GetBid(key core.AssetKey) (BidRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid, ok := s.bids[key]
	return bid, ok, nil
}

func (s *MemoryStore) PutBid(key core.AssetKey, bid BidRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids[key] = bid
	return nil
}

func (s *MemoryStore) DeleteBid(key core.AssetKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bids, key)
	return nil
}

func (s *MemoryStore) DeleteAuctionAndBid(key core.AssetKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.auctions, key)
	delete(s.bids, key)
	return nil
}

func (s *MemoryStore) ListAuctions() ([]ListedAuction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listed := make([]ListedAuction, 0, len(s.auctions))
	for key, rec := range s.auctions {
		bid, hasBid := s.bids[key]
		listed = append(listed, ListedAuction{
			Key:     key,
			Auction: rec,
			Bid:     bid,
			HasBid:  hasBid,
		})
	}
	sort.Slice(listed, func(i, j int) bool {
		return listed[i].Key.String() < listed[j].Key.String()
	})
	return listed, nil
}
