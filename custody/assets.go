package custody

import (
	"fmt"
	"sync"

	"github.com/cloudmarket-io/auctionhouse/core"
)

// MemoryAssetRegistry is an in-memory AssetRegistry with ERC-721 style
// operator approvals.
type MemoryAssetRegistry struct {
	mu        sync.Mutex
	owners    map[core.AssetKey]string
	approvals map[string]map[string]bool // owner -> operator -> approved
}

func NewMemoryAssetRegistry() *MemoryAssetRegistry {
	return &MemoryAssetRegistry{
		owners:    make(map[core.AssetKey]string),
		approvals: make(map[string]map[string]bool),
	}
}

// Mint registers a new asset under the given owner. Test and embedded
// deployment setup only.
func (r *MemoryAssetRegistry) Mint(key core.AssetKey, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.owners[key]; exists {
		return fmt.Errorf("asset %s already minted", key)
	}
	r.owners[key] = owner
	return nil
}

// SetApprovalForAll grants or revokes operator's right to move any of
// owner's assets.
func (r *MemoryAssetRegistry) SetApprovalForAll(owner, operator string, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops, ok := r.approvals[owner]
	if !ok {
		ops = make(map[string]bool)
		r.approvals[owner] = ops
	}
	ops[operator] = approved
}

func (r *MemoryAssetRegistry) OwnerOf(key core.AssetKey) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[key]
	if !ok {
		return "", fmt.Errorf("asset %s does not exist", key)
	}
	return owner, nil
}

func (r *MemoryAssetRegistry) IsApprovedForAll(owner, operator string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.approvals[owner][operator]
}

func (r *MemoryAssetRegistry) Transfer(key core.AssetKey, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[key]
	if !ok {
		return fmt.Errorf("asset %s does not exist", key)
	}
	if owner != from {
		return fmt.Errorf("asset %s is owned by %s, not %s", key, owner, from)
	}
	r.owners[key] = to
	return nil
}
