// Package registry holds the marketplace-wide lookup services the auction
// engine consults: which pay tokens are accepted for bidding and where the
// platform fee is sent.
package registry

import (
	"strings"
	"sync"
)

// TokenRegistry answers whether a fungible token may be used as the bidding
// currency of an auction.
type TokenRegistry interface {
	IsAccepted(token string) bool
}

// AddressRegistry resolves the current platform addresses.
type AddressRegistry interface {
	FeeRecipient() string
}

// MemoryTokenRegistry is a mutable in-memory TokenRegistry. Token addresses
// are compared case-insensitively.
type MemoryTokenRegistry struct {
	mu       sync.RWMutex
	accepted map[string]bool
}

func NewMemoryTokenRegistry(tokens ...string) *MemoryTokenRegistry {
	r := &MemoryTokenRegistry{accepted: make(map[string]bool)}
	for _, token := range tokens {
		r.Add(token)
	}
	return r
}

func (r *MemoryTokenRegistry) Add(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted[strings.ToLower(token)] = true
}

func (r *MemoryTokenRegistry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accepted, strings.ToLower(token))
}

func (r *MemoryTokenRegistry) IsAccepted(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accepted[strings.ToLower(token)]
}

// MemoryAddressRegistry is a mutable in-memory AddressRegistry.
type MemoryAddressRegistry struct {
	mu           sync.RWMutex
	feeRecipient string
}

func NewMemoryAddressRegistry(feeRecipient string) *MemoryAddressRegistry {
	return &MemoryAddressRegistry{feeRecipient: feeRecipient}
}

func (r *MemoryAddressRegistry) SetFeeRecipient(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeRecipient = addr
}

func (r *MemoryAddressRegistry) FeeRecipient() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feeRecipient
}
