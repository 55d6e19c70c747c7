package custody

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-memory TokenLedger. Balances are keyed by token,
// then by holder.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]map[string]decimal.Decimal
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]map[string]decimal.Decimal),
	}
}

// Mint credits amount of token to holder out of thin air. Test and embedded
// deployment setup only.
func (l *MemoryLedger) Mint(token, holder string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, holder, amount)
}

func (l *MemoryLedger) Transfer(token, from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("transfer amount %s is negative", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balance(token, from)
	if balance.LessThan(amount) {
		return fmt.Errorf("insufficient %s balance for %s: have %s, need %s", token, from, balance, amount)
	}

	l.credit(token, from, amount.Neg())
	l.credit(token, to, amount)
	return nil
}

func (l *MemoryLedger) Balance(token, holder string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(token, holder)
}

func (l *MemoryLedger) balance(token, holder string) decimal.Decimal {
	holders, ok := l.balances[token]
	if !ok {
		return decimal.Zero
	}
	balance, ok := holders[holder]
	if !ok {
		return decimal.Zero
	}
	return balance
}

func (l *MemoryLedger) credit(token, holder string, amount decimal.Decimal) {
	holders, ok := l.balances[token]
	if !ok {
		holders = make(map[string]decimal.Decimal)
		l.balances[token] = holders
	}
	holders[holder] = holders[holder].Add(amount)
}
