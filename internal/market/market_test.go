package market_test

import (
	"errors"
	"path/filepath"
	"testing"

	"chipbot/internal/infra/snapshot"
	"chipbot/internal/market"
)

func newTestMarket(t *testing.T) *market.Market {
	t.Helper()

	return market.New(snapshot.NewStore(filepath.Join(t.TempDir(), "poll.json")))
}

func mustCreate(t *testing.T, m *market.Market, q, a, b string) {
	t.Helper()

	err := m.Create(q, a, b)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestMarket_CreateRejectsSecondActivePoll(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)
	mustCreate(t, m, "Who wins?", "A", "B")

	err := m.Create("Another?", "X", "Y")
	if !errors.Is(err, market.ErrAlreadyActive) {
		t.Fatalf("want ErrAlreadyActive, got %v", err)
	}
}

func TestMarket_CreateAfterResolve(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)
	mustCreate(t, m, "Q1", "A", "B")

	_, err := m.Resolve("A")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Terminal poll; a new one may be created.
	mustCreate(t, m, "Q2", "C", "D")

	data := m.Data()
	if data.Question != "Q2" || !data.Active || data.TotalBets != 0 {
		t.Fatalf("fresh poll state wrong: %+v", data)
	}
}

func TestMarket_PlaceBetPreconditions(t *testing.T) {
	t.Parallel()

	type tc struct {
		name    string
		setup   func(t *testing.T, m *market.Market)
		user    string
		option  string
		wantErr error
	}

	tests := []tc{
		{
			name:    "no_active_poll",
			setup:   func(t *testing.T, m *market.Market) {},
			user:    "u1",
			option:  "A",
			wantErr: market.ErrNoActivePoll,
		},
		{
			name: "closed_poll",
			setup: func(t *testing.T, m *market.Market) {
				mustCreate(t, m, "Q", "A", "B")
				if err := m.Close(); err != nil {
					t.Fatalf("Close: %v", err)
				}
			},
			user:    "u1",
			option:  "A",
			wantErr: market.ErrPollClosed,
		},
		{
			name: "unknown_option",
			setup: func(t *testing.T, m *market.Market) {
				mustCreate(t, m, "Q", "A", "B")
			},
			user:    "u1",
			option:  "C",
			wantErr: market.ErrInvalidOption,
		},
		{
			name: "option_locked_after_first_bet",
			setup: func(t *testing.T, m *market.Market) {
				mustCreate(t, m, "Q", "A", "B")
				if err := m.PlaceBet("u1", "A", 50); err != nil {
					t.Fatalf("seed bet: %v", err)
				}
			},
			user:    "u1",
			option:  "B",
			wantErr: market.ErrOptionLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newTestMarket(t)
			tt.setup(t, m)

			err := m.PlaceBet(tt.user, tt.option, 100)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("PlaceBet: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarket_StakesSumMatchesTotal(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)
	mustCreate(t, m, "Q", "A", "B")

	bets := []struct {
		user   string
		option string
		amount int64
	}{
		{"u1", "A", 100},
		{"u2", "B", 200},
		{"u1", "A", 50}, // same option again accumulates
		{"u3", "B", 25},
	}

	for _, b := range bets {
		err := m.PlaceBet(b.user, b.option, b.amount)
		if err != nil {
			t.Fatalf("PlaceBet(%s, %s, %d): %v", b.user, b.option, b.amount, err)
		}
	}

	data := m.Data()

	var sum int64
	for _, book := range data.Options {
		for _, stake := range book {
			sum += stake
		}
	}

	if sum != data.TotalBets {
		t.Fatalf("stake sum %d != total_bets %d", sum, data.TotalBets)
	}
	if data.TotalBets != 375 {
		t.Fatalf("total_bets: got %d, want 375", data.TotalBets)
	}
	if data.Options["A"]["u1"] != 150 {
		t.Fatalf("u1 stake: got %d, want 150", data.Options["A"]["u1"])
	}
}

func TestMarket_CloseTransitions(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)

	err := m.Close()
	if !errors.Is(err, market.ErrNoActivePoll) {
		t.Fatalf("Close without poll: got %v, want ErrNoActivePoll", err)
	}

	mustCreate(t, m, "Q", "A", "B")

	err = m.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	err = m.Close()
	if !errors.Is(err, market.ErrAlreadyClosed) {
		t.Fatalf("second Close: got %v, want ErrAlreadyClosed", err)
	}
}

func TestMarket_ResolveSoleWinnerTakesPot(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)
	mustCreate(t, m, "Q", "A", "B")

	for _, b := range []struct {
		user   string
		option string
		amount int64
	}{{"u1", "A", 100}, {"u2", "B", 200}} {
		err := m.PlaceBet(b.user, b.option, b.amount)
		if err != nil {
			t.Fatalf("PlaceBet: %v", err)
		}
	}

	err := m.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	payouts, err := m.Resolve("A")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(payouts) != 1 || payouts["u1"] != 300 {
		t.Fatalf("payouts: got %v, want {u1: 300}", payouts)
	}

	if m.Data().Active {
		t.Fatal("poll still active after Resolve")
	}
}

func TestMarket_ResolveTruncatesShares(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)
	mustCreate(t, m, "Q", "A", "B")

	for _, b := range []struct {
		user   string
		option string
		amount int64
	}{{"u1", "A", 100}, {"u2", "A", 200}, {"u3", "B", 50}} {
		err := m.PlaceBet(b.user, b.option, b.amount)
		if err != nil {
			t.Fatalf("PlaceBet: %v", err)
		}
	}

	payouts, err := m.Resolve("A")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// pot 350, winning side 300: floor shares 116 and 233, one chip
	// of the pot is dropped by truncation.
	if payouts["u1"] != 116 || payouts["u2"] != 233 {
		t.Fatalf("payouts: got %v, want {u1: 116, u2: 233}", payouts)
	}

	var sum int64
	for _, p := range payouts {
		sum += p
	}
	if sum > 350 {
		t.Fatalf("paid out %d, more than the pot", sum)
	}
}

func TestMarket_ResolveNobodyOnWinningSide(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)
	mustCreate(t, m, "Q", "A", "B")

	err := m.PlaceBet("u1", "B", 500)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	payouts, err := m.Resolve("A")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(payouts) != 0 {
		t.Fatalf("payouts should be empty, got %v", payouts)
	}
}

func TestMarket_ResolveErrors(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)

	_, err := m.Resolve("A")
	if !errors.Is(err, market.ErrNoActivePoll) {
		t.Fatalf("Resolve without poll: got %v", err)
	}

	mustCreate(t, m, "Q", "A", "B")

	_, err = m.Resolve("C")
	if !errors.Is(err, market.ErrInvalidOption) {
		t.Fatalf("Resolve unknown option: got %v", err)
	}
}

func TestMarket_DataIsDefensiveCopy(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t)
	mustCreate(t, m, "Q", "A", "B")

	err := m.PlaceBet("u1", "A", 100)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	data := m.Data()
	data.Options["A"]["u1"] = 9999
	data.Options["B"]["intruder"] = 1

	fresh := m.Data()
	if fresh.Options["A"]["u1"] != 100 {
		t.Error("mutating Data() result leaked into market state")
	}
	if len(fresh.Options["B"]) != 0 {
		t.Error("mutating Data() result added stakes to market state")
	}
}

func TestMarket_ReloadFromSnapshot(t *testing.T) {
	t.Parallel()

	store := snapshot.NewStore(filepath.Join(t.TempDir(), "poll.json"))

	m := market.New(store)
	mustCreate(t, m, "Q", "A", "B")

	err := m.PlaceBet("u1", "A", 100)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	err = m.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded := market.New(store)

	data := reloaded.Data()
	if !data.Active || !data.Closed {
		t.Fatalf("reloaded poll flags wrong: %+v", data)
	}
	if data.Options["A"]["u1"] != 100 || data.TotalBets != 100 {
		t.Fatalf("reloaded stakes wrong: %+v", data)
	}

	// Still resolvable after reload.
	payouts, err := reloaded.Resolve("A")
	if err != nil {
		t.Fatalf("Resolve after reload: %v", err)
	}
	if payouts["u1"] != 100 {
		t.Fatalf("payout after reload: got %v", payouts)
	}
}
