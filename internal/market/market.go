// Package market runs the pari-mutuel prediction poll: a single
// optional poll with two options, per-user stakes, and proportional
// payout of the whole pot to the winning side.
//
// The market never touches the chips ledger. Debiting a stake before
// PlaceBet and crediting payouts after Resolve is the caller's job, so
// the two components keep independent locks.
package market

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"chipbot/internal/infra/snapshot"
)

var (
	ErrNoActivePoll  = errors.New("no active poll")
	ErrAlreadyActive = errors.New("a poll is already active")
	ErrAlreadyClosed = errors.New("poll already closed")
	ErrPollClosed    = errors.New("poll is closed for betting")
	ErrInvalidOption = errors.New("invalid option")
	ErrOptionLocked  = errors.New("already backing the other option")
)

// Poll is the full poll state. It is also the snapshot wire format:
// options map option name to user id to staked chips.
type Poll struct {
	Active    bool                        `json:"active"`
	Closed    bool                        `json:"closed"`
	Question  string                      `json:"question"`
	Options   map[string]map[string]int64 `json:"options"`
	TotalBets int64                       `json:"total_bets"`
}

// Market owns the singleton poll. One mutex guards both the in-memory
// state and the snapshot write; memory is authoritative when the write
// fails.
type Market struct {
	mu    sync.Mutex
	poll  Poll
	store *snapshot.Store
}

// New builds a Market from the snapshot store. Missing snapshot means
// no poll; a corrupt one is logged and discarded.
func New(store *snapshot.Store) *Market {
	m := &Market{store: store}

	var loaded Poll

	ok, err := store.Load(&loaded)
	if err != nil {
		slog.Warn("poll snapshot unreadable, starting without a poll",
			"path", store.Path(), "error", err)

		return m
	}

	if ok {
		m.poll = loaded
	}

	return m
}

// Create installs a fresh open poll with two empty stake books. The
// two option names must differ; the previous poll, if resolved, is
// discarded.
func (m *Market) Create(question, optionA, optionB string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poll.Active {
		return ErrAlreadyActive
	}

	m.poll = Poll{
		Active:   true,
		Question: question,
		Options: map[string]map[string]int64{
			optionA: {},
			optionB: {},
		},
	}

	return m.persistLocked()
}

// PlaceBet records amount chips from the user on the named option. A
// user's first bet pins their option for the poll's lifetime; betting
// on the other option fails with ErrOptionLocked. Funds are not
// checked here.
func (m *Market) PlaceBet(userID, option string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.poll.Active {
		return ErrNoActivePoll
	}
	if m.poll.Closed {
		return ErrPollClosed
	}

	stakes, known := m.poll.Options[option]
	if !known {
		return ErrInvalidOption
	}

	for other, book := range m.poll.Options {
		if other == option {
			continue
		}
		if _, betOther := book[userID]; betOther {
			return ErrOptionLocked
		}
	}

	stakes[userID] += amount
	m.poll.TotalBets += amount

	return m.persistLocked()
}

// Close stops further betting while keeping the poll active for
// resolution.
func (m *Market) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.poll.Active {
		return ErrNoActivePoll
	}
	if m.poll.Closed {
		return ErrAlreadyClosed
	}

	m.poll.Closed = true

	return m.persistLocked()
}

// Resolve ends the poll and computes each winner's share of the whole
// pot: floor(stake * pot / winning-side total). Truncation remainders
// stay undistributed. The stake*pot product must fit in int64, which
// holds as long as no single balance exceeds ~3e9 chips; admin balance
// overrides past that bound are unsupported. When nobody backed the
// winning option the map is empty and the pot is simply not paid out.
// The poll becomes terminal (inactive) but its data is retained until
// the next Create.
//
// Crediting the returned payouts to the ledger is the caller's
// responsibility.
func (m *Market) Resolve(winningOption string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.poll.Active {
		return nil, ErrNoActivePoll
	}

	winners, known := m.poll.Options[winningOption]
	if !known {
		return nil, ErrInvalidOption
	}

	var winningTotal int64
	for _, stake := range winners {
		winningTotal += stake
	}

	payouts := make(map[string]int64)
	if winningTotal > 0 {
		pot := m.poll.TotalBets
		for userID, stake := range winners {
			payouts[userID] = stake * pot / winningTotal
		}
	}

	m.poll.Active = false

	return payouts, m.persistLocked()
}

// Data returns a deep copy of the poll state for display.
func (m *Market) Data() Poll {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := m.poll
	copied.Options = make(map[string]map[string]int64, len(m.poll.Options))

	for option, book := range m.poll.Options {
		stakes := make(map[string]int64, len(book))
		for userID, stake := range book {
			stakes[userID] = stake
		}
		copied.Options[option] = stakes
	}

	return copied
}

func (m *Market) persistLocked() error {
	err := m.store.Save(m.poll)
	if err != nil {
		return fmt.Errorf("save poll snapshot: %w", err)
	}

	return nil
}
