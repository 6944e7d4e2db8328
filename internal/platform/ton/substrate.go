package ton

import (
	"context"
	"math/big"
	"sync"
)

// Substrate is the external ledger the treasury settles against. The
// internal pool accounting is the source of truth for entitlement; the
// substrate transfer only moves value after internal state is committed.
type Substrate interface {
	// ValidateAccount reports whether ref parses as a ledger account.
	ValidateAccount(ref string) error
	// ReadBalance returns the native balance of the account in nano units.
	ReadBalance(ctx context.Context, ref string) (*big.Int, error)
	// JettonBalance returns the balance of the qualifying jetton held by
	// the account, zero when the account holds none.
	JettonBalance(ctx context.Context, ref, master string) (*big.Int, error)
	// RecentTransactionCount returns how many of the account's latest
	// transactions are visible, capped at limit.
	RecentTransactionCount(ctx context.Context, ref string, limit int) (int, error)
	// Transfer moves amount (nano units) from the treasury wallet to the
	// account and returns an opaque receipt.
	Transfer(ctx context.Context, ref string, amount uint64) (string, error)
}

// MemorySubstrate is an in-process Substrate used by tests and local runs
// without a lite server.
type MemorySubstrate struct {
	mu        sync.Mutex
	balances  map[string]*big.Int
	jettons   map[string]*big.Int
	activity  map[string]int
	transfers []MemoryTransfer
}

type MemoryTransfer struct {
	Ref    string
	Amount uint64
}

func NewMemorySubstrate() *MemorySubstrate {
	return &MemorySubstrate{
		balances: make(map[string]*big.Int),
		jettons:  make(map[string]*big.Int),
		activity: make(map[string]int),
	}
}

func (m *MemorySubstrate) SetBalance(ref string, v int64) {
	m.mu.Lock()
	m.balances[ref] = big.NewInt(v)
	m.mu.Unlock()
}

func (m *MemorySubstrate) SetJetton(ref string, v int64) {
	m.mu.Lock()
	m.jettons[ref] = big.NewInt(v)
	m.mu.Unlock()
}

func (m *MemorySubstrate) SetActivity(ref string, n int) {
	m.mu.Lock()
	m.activity[ref] = n
	m.mu.Unlock()
}

// Transfers returns a copy of all transfers executed so far.
func (m *MemorySubstrate) Transfers() []MemoryTransfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MemoryTransfer, len(m.transfers))
	copy(out, m.transfers)
	return out
}

func (m *MemorySubstrate) ValidateAccount(ref string) error {
	if ref == "" {
		return ErrInvalidAccount
	}
	return nil
}

func (m *MemorySubstrate) ReadBalance(_ context.Context, ref string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[ref]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (m *MemorySubstrate) JettonBalance(_ context.Context, ref, _ string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.jettons[ref]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (m *MemorySubstrate) RecentTransactionCount(_ context.Context, ref string, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.activity[ref]
	if n > limit {
		n = limit
	}
	return n, nil
}

func (m *MemorySubstrate) Transfer(_ context.Context, ref string, amount uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, MemoryTransfer{Ref: ref, Amount: amount})
	return "mem-tx", nil
}
