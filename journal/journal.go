// Package journal persists every engine event to an append-only file for
// audit and replay. Each entry is a CBOR-encoded envelope whose payload is
// the JSON encoding of the event itself, so monetary amounts keep their
// exact decimal representation.
package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloudmarket-io/auctionhouse/auction"
)

// Entry is one journaled event.
type Entry struct {
	ID      string    `cbor:"1,keyasint"`
	At      time.Time `cbor:"2,keyasint"`
	Name    string    `cbor:"3,keyasint"`
	Payload []byte    `cbor:"4,keyasint"`
}

// Decode unmarshals the JSON payload into out.
func (e Entry) Decode(out any) error {
	return json.Unmarshal(e.Payload, out)
}

// Journal is an auction.EventSink appending entries to a file. Publish never
// fails the caller: a write error is logged and the event dropped, since
// observability must not block settlement.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	enc *cbor.Encoder
	log *zap.Logger
	now func() time.Time
}

var _ auction.EventSink = (*Journal)(nil)

// Open appends to the journal at path, creating it if needed.
func Open(path string, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Journal{
		f:   f,
		enc: cbor.NewEncoder(f),
		log: logger.Named("journal"),
		now: time.Now,
	}, nil
}

func (j *Journal) Publish(ev auction.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		j.log.Error("encode event payload", zap.String("event", ev.EventName()), zap.Error(err))
		return
	}

	entry := Entry{
		ID:      uuid.NewString(),
		At:      j.now().UTC(),
		Name:    ev.EventName(),
		Payload: payload,
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(entry); err != nil {
		j.log.Error("append journal entry", zap.String("event", entry.Name), zap.Error(err))
	}
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

// Read returns every entry in the journal at path, oldest first.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	dec := cbor.NewDecoder(f)
	for {
		var entry Entry
		if err := dec.Decode(&entry); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, fmt.Errorf("decode journal entry %d: %w", len(entries), err)
		}
		entries = append(entries, entry)
	}
}
