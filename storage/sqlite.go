// Package storage provides the SQLite-backed auction store used by daemons
// that must survive restarts without orphaning escrowed assets.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cloudmarket-io/auctionhouse/auction"
	"github.com/cloudmarket-io/auctionhouse/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS auctions (
	contract      TEXT NOT NULL,
	token_id      TEXT NOT NULL,
	seller        TEXT NOT NULL,
	pay_token     TEXT NOT NULL,
	reserve_price TEXT NOT NULL,
	start_time    INTEGER NOT NULL,
	end_time      INTEGER NOT NULL,
	min_bid       TEXT NOT NULL,
	resulted      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (contract, token_id)
);
CREATE TABLE IF NOT EXISTS bids (
	contract      TEXT NOT NULL,
	token_id      TEXT NOT NULL,
	bidder        TEXT NOT NULL,
	amount        TEXT NOT NULL,
	last_bid_time INTEGER NOT NULL,
	PRIMARY KEY (contract, token_id)
);`

// SQLiteStore implements auction.Store on a SQLite database. Monetary
// amounts are stored as exact decimal strings, times as unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

var _ auction.Store = (*SQLiteStore)(nil)

func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetAuction(key core.AssetKey) (auction.AuctionRecord, bool, error) {
	row := s.db.QueryRow(
		"SELECT seller, pay_token, reserve_price, start_time, end_time, min_bid, resulted FROM auctions WHERE contract = ? AND token_id = ?",
		key.Contract, key.TokenID,
	)

	var rec auction.AuctionRecord
	var reserve, minBid string
	var startNs, endNs int64
	var resulted int
	err := row.Scan(&rec.Seller, &rec.PayToken, &reserve, &startNs, &endNs, &minBid, &resulted)
	if err == sql.ErrNoRows {
		return auction.AuctionRecord{}, false, nil
	}
	if err != nil {
		return auction.AuctionRecord{}, false, fmt.Errorf("query auction: %w", err)
	}

	rec.ReservePrice, err = decimal.NewFromString(reserve)
	if err != nil {
		return auction.AuctionRecord{}, false, fmt.Errorf("corrupt reserve price %q: %w", reserve, err)
	}
	rec.MinBid, err = decimal.NewFromString(minBid)
	if err != nil {
		return auction.AuctionRecord{}, false, fmt.Errorf("corrupt min bid %q: %w", minBid, err)
	}
	rec.StartTime = time.Unix(0, startNs).UTC()
	rec.EndTime = time.Unix(0, endNs).UTC()
	rec.Resulted = resulted != 0
	return rec, true, nil
}

func (s *SQLiteStore) PutAuction(key core.AssetKey, rec auction.AuctionRecord) error {
	resulted := 0
	if rec.Resulted {
		resulted = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO auctions (contract, token_id, seller, pay_token, reserve_price, start_time, end_time, min_bid, resulted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (contract, token_id) DO UPDATE SET
		 seller = excluded.seller, pay_token = excluded.pay_token, reserve_price = excluded.reserve_price,
		 start_time = excluded.start_time, end_time = excluded.end_time, min_bid = excluded.min_bid, resulted = excluded.resulted`,
		key.Contract, key.TokenID, rec.Seller, rec.PayToken, rec.ReservePrice.String(),
		rec.StartTime.UnixNano(), rec.EndTime.UnixNano(), rec.MinBid.String(), resulted,
	)
	if err != nil {
		return fmt.Errorf("upsert auction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetBid(key core.AssetKey) (auction.BidRecord, bool, error) {
	row := s.db.QueryRow(
		"SELECT bidder, amount, last_bid_time FROM bids WHERE contract = ? AND token_id = ?",
		key.Contract, key.TokenID,
	)

	var bid auction.BidRecord
	var amount string
	var lastNs int64
	err := row.Scan(&bid.Bidder, &amount, &lastNs)
	if err == sql.ErrNoRows {
		return auction.BidRecord{}, false, nil
	}
	if err != nil {
		return auction.BidRecord{}, false, fmt.Errorf("query bid: %w", err)
	}

	bid.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return auction.BidRecord{}, false, fmt.Errorf("corrupt bid amount %q: %w", amount, err)
	}
	bid.LastBidTime = time.Unix(0, lastNs).UTC()
	return bid, true, nil
}

func (s *SQLiteStore) PutBid(key core.AssetKey, bid auction.BidRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO bids (contract, token_id, bidder, amount, last_bid_time)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (contract, token_id) DO UPDATE SET
		 bidder = excluded.bidder, amount = excluded.amount, last_bid_time = excluded.last_bid_time`,
		key.Contract, key.TokenID, bid.Bidder, bid.Amount.String(), bid.LastBidTime.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert bid: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteBid(key core.AssetKey) error {
	if _, err := s.db.Exec("DELETE FROM bids WHERE contract = ? AND token_id = ?", key.Contract, key.TokenID); err != nil {
		return fmt.Errorf("delete bid: %w", err)
	}
	return nil
}

// DeleteAuctionAndBid removes both records in one transaction, so a terminal
// transition can never leave a dangling bid.
func (s *SQLiteStore) DeleteAuctionAndBid(key core.AssetKey) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM auctions WHERE contract = ? AND token_id = ?", key.Contract, key.TokenID); err != nil {
		tx.Rollback()
		return fmt.Errorf("delete auction: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM bids WHERE contract = ? AND token_id = ?", key.Contract, key.TokenID); err != nil {
		tx.Rollback()
		return fmt.Errorf("delete bid: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAuctions() ([]auction.ListedAuction, error) {
	rows, err := s.db.Query(
		`SELECT a.contract, a.token_id, a.seller, a.pay_token, a.reserve_price, a.start_time, a.end_time, a.min_bid, a.resulted,
		        b.bidder, b.amount, b.last_bid_time
		 FROM auctions a LEFT JOIN bids b ON a.contract = b.contract AND a.token_id = b.token_id
		 ORDER BY a.contract, a.token_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	var listed []auction.ListedAuction
	for rows.Next() {
		var entry auction.ListedAuction
		var contract, tokenID, reserve, minBid string
		var startNs, endNs int64
		var resulted int
		var bidder, amount sql.NullString
		var lastNs sql.NullInt64

		err := rows.Scan(&contract, &tokenID, &entry.Auction.Seller, &entry.Auction.PayToken,
			&reserve, &startNs, &endNs, &minBid, &resulted, &bidder, &amount, &lastNs)
		if err != nil {
			return nil, fmt.Errorf("scan auction row: %w", err)
		}

		entry.Key = core.AssetKey{Contract: contract, TokenID: tokenID}
		entry.Auction.ReservePrice, err = decimal.NewFromString(reserve)
		if err != nil {
			return nil, fmt.Errorf("corrupt reserve price %q: %w", reserve, err)
		}
		entry.Auction.MinBid, err = decimal.NewFromString(minBid)
		if err != nil {
			return nil, fmt.Errorf("corrupt min bid %q: %w", minBid, err)
		}
		entry.Auction.StartTime = time.Unix(0, startNs).UTC()
		entry.Auction.EndTime = time.Unix(0, endNs).UTC()
		entry.Auction.Resulted = resulted != 0

		if bidder.Valid {
			entry.HasBid = true
			entry.Bid.Bidder = bidder.String
			entry.Bid.Amount, err = decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt bid amount %q: %w", amount.String, err)
			}
			entry.Bid.LastBidTime = time.Unix(0, lastNs.Int64).UTC()
		}
		listed = append(listed, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auctions: %w", err)
	}
	return listed, nil
}
