// Package ledger owns the user → chips mapping. All operations run
// under one mutex covering both the in-memory mutation and the
// snapshot write, so at most one mutation is in flight and Transfer is
// atomic with respect to every other ledger operation.
//
// Durability is best-effort: a failed snapshot write is returned to the
// caller but the in-memory state is not rolled back. Memory is
// authoritative.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"chipbot/internal/infra/snapshot"
)

// ErrInsufficientFunds is returned by Remove and Transfer when the
// debited account holds fewer chips than requested. No state changes.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Entry is one account row, used by leaderboard queries.
type Entry struct {
	UserID string `json:"userId"`
	Chips  int64  `json:"chips"`
}

// Ledger tracks chip balances for all known accounts. Accounts are
// created implicitly on first access with the configured default
// balance and are never deleted.
type Ledger struct {
	mu           sync.Mutex
	chips        map[string]int64
	order        []string // account creation order, ranking tie-break
	defaultChips int64
	store        *snapshot.Store
}

// New builds a Ledger backed by the given snapshot store. A missing
// snapshot starts empty; a corrupt one is logged and discarded, also
// starting empty.
func New(defaultChips int64, store *snapshot.Store) *Ledger {
	l := &Ledger{
		chips:        make(map[string]int64),
		defaultChips: defaultChips,
		store:        store,
	}

	loaded := make(map[string]int64)

	ok, err := store.Load(&loaded)
	if err != nil {
		slog.Warn("chips snapshot unreadable, starting empty",
			"path", store.Path(), "error", err)

		return l
	}

	if ok {
		l.chips = loaded

		// JSON objects carry no order. Seed the tie-break order
		// deterministically; new accounts append after these.
		for id := range loaded {
			l.order = append(l.order, id)
		}
		sort.Strings(l.order)
	}

	return l
}

// NormalizeID maps a raw platform identifier to the canonical string
// form used as the mapping key.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// Balance returns the user's chips, creating the account with the
// default balance on first access. It never fails; a snapshot error
// during implicit creation is logged and the in-memory balance stands.
func (l *Ledger) Balance(id string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	id = NormalizeID(id)

	if _, exists := l.chips[id]; !exists {
		l.createLocked(id)

		err := l.persistLocked()
		if err != nil {
			slog.Error("persist chips after account creation", "user", id, "error", err)
		}
	}

	return l.chips[id]
}

// Set overwrites the user's balance unconditionally. Admin operation;
// the returned error reports only the snapshot write.
func (l *Ledger) Set(id string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	id = NormalizeID(id)

	if _, exists := l.chips[id]; !exists {
		l.order = append(l.order, id)
	}
	l.chips[id] = amount

	return l.persistLocked()
}

// Add credits chips to the user, creating the account first if needed.
func (l *Ledger) Add(id string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	id = NormalizeID(id)

	if _, exists := l.chips[id]; !exists {
		l.createLocked(id)
	}
	l.chips[id] += amount

	return l.persistLocked()
}

// Remove debits chips from the user. This is the solvency gate: if the
// balance is short the call returns ErrInsufficientFunds and nothing
// changes.
func (l *Ledger) Remove(id string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	id = NormalizeID(id)

	if _, exists := l.chips[id]; !exists {
		l.createLocked(id)
	}

	if l.chips[id] < amount {
		return ErrInsufficientFunds
	}
	l.chips[id] -= amount

	return l.persistLocked()
}

// Transfer moves chips between two accounts as one indivisible unit.
// Both accounts are created if absent before the solvency check; on
// ErrInsufficientFunds neither balance changes.
func (l *Ledger) Transfer(from, to string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	from = NormalizeID(from)
	to = NormalizeID(to)

	if _, exists := l.chips[from]; !exists {
		l.createLocked(from)
	}
	if _, exists := l.chips[to]; !exists {
		l.createLocked(to)
	}

	if l.chips[from] < amount {
		return ErrInsufficientFunds
	}

	l.chips[from] -= amount
	l.chips[to] += amount

	return l.persistLocked()
}

// Top returns the n richest accounts in descending balance order,
// skipping the excluded ids. Ties keep account creation order.
func (l *Ledger) Top(n int, exclude ...string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[NormalizeID(id)] = struct{}{}
	}

	entries := make([]Entry, 0, len(l.order))
	for _, id := range l.order {
		if _, excluded := skip[id]; excluded {
			continue
		}
		entries = append(entries, Entry{UserID: id, Chips: l.chips[id]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Chips > entries[j].Chips
	})

	if len(entries) > n {
		entries = entries[:n]
	}

	return entries
}

// Rank returns the user's 1-based position in the full descending
// ordering, with the same tie-break as Top. ok is false when the user
// has no account.
func (l *Ledger) Rank(id string) (rank int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id = NormalizeID(id)

	if _, exists := l.chips[id]; !exists {
		return 0, false
	}

	entries := make([]Entry, 0, len(l.order))
	for _, uid := range l.order {
		entries = append(entries, Entry{UserID: uid, Chips: l.chips[uid]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Chips > entries[j].Chips
	})

	for i, e := range entries {
		if e.UserID == id {
			return i + 1, true
		}
	}

	return 0, false
}

// Broke lists every account holding exactly zero chips, in account
// creation order.
func (l *Ledger) Broke() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var broke []string
	for _, id := range l.order {
		if l.chips[id] == 0 {
			broke = append(broke, id)
		}
	}

	return broke
}

// ResetBroke restores every zero-balance account to the default chips
// as one batch with a single snapshot write. Returns how many accounts
// were reset.
func (l *Ledger) ResetBroke() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for id, chips := range l.chips {
		if chips == 0 {
			l.chips[id] = l.defaultChips
			count++
		}
	}

	if count == 0 {
		return 0, nil
	}

	return count, l.persistLocked()
}

func (l *Ledger) createLocked(id string) {
	l.chips[id] = l.defaultChips
	l.order = append(l.order, id)
}

func (l *Ledger) persistLocked() error {
	err := l.store.Save(l.chips)
	if err != nil {
		return fmt.Errorf("save chips snapshot: %w", err)
	}

	return nil
}
