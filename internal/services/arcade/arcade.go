// Package arcade runs the wagering protocol shared by all minigames:
// validate the bet, debit it through the ledger's solvency gate, draw
// or force an outcome, evaluate it with the pure game rules, and
// credit the payout on a win.
//
// The debit and the credit are separate ledger operations. A snapshot
// failure in between never rolls the round back; the in-memory ledger
// stays authoritative and the round is marked degraded.
package arcade

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"chipbot/internal/games"
	"chipbot/internal/ledger"
	"chipbot/internal/observability"
)

var (
	ErrInvalidBet  = errors.New("bet must be at least 1 chip")
	ErrInvalidSide = errors.New("side must be heads or tails")
	ErrOutOfRange  = errors.New("number out of range")
)

// Round is the outcome of one finished game round.
type Round struct {
	Ref      string `json:"ref"`
	Game     string `json:"game"`
	Outcome  string `json:"outcome"`
	Win      bool   `json:"win"`
	Payout   int64  `json:"payout"`
	Net      int64  `json:"net"`
	Balance  int64  `json:"balance"`
	Broke    bool   `json:"broke"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Service orchestrates game rounds against the ledger.
type Service struct {
	ledger    *ledger.Ledger
	roller    *games.Roller
	metrics   *observability.Metrics
	superuser string
	forceWin  atomic.Bool
}

// New builds the arcade. superuserID is the single privileged account;
// when forceWin is enabled its rounds always land on the chosen
// outcome.
func New(l *ledger.Ledger, roller *games.Roller, m *observability.Metrics, superuserID string, forceWin bool) *Service {
	s := &Service{
		ledger:    l,
		roller:    roller,
		metrics:   m,
		superuser: ledger.NormalizeID(superuserID),
	}
	s.forceWin.Store(forceWin)

	return s
}

// ForceWin reports whether the privileged override is enabled.
func (s *Service) ForceWin() bool {
	return s.forceWin.Load()
}

// SetForceWin toggles the privileged override at runtime.
func (s *Service) SetForceWin(enabled bool) {
	s.forceWin.Store(enabled)
}

// Flip plays a coin flip on the chosen side.
func (s *Service) Flip(userID string, bet int64, side games.Side) (*Round, error) {
	if side != games.Heads && side != games.Tails {
		return nil, ErrInvalidSide
	}

	return s.play("flip", userID, bet, func(forced bool) (games.Result, string) {
		drawn := s.roller.FlipCoin()
		if forced {
			drawn = side
		}

		return games.Flip(bet, side, drawn), string(drawn)
	})
}

// Roll plays a d6 roll on the chosen number (1-6).
func (s *Service) Roll(userID string, bet int64, number int) (*Round, error) {
	if number < 1 || number > 6 {
		return nil, ErrOutOfRange
	}

	return s.play("roll", userID, bet, func(forced bool) (games.Result, string) {
		drawn := s.roller.RollDie()
		if forced {
			drawn = number
		}

		return games.Roll(bet, number, drawn), strconv.Itoa(drawn)
	})
}

// Roulette plays a wheel spin on the chosen number (0-36).
func (s *Service) Roulette(userID string, bet int64, number int) (*Round, error) {
	if number < 0 || number > 36 {
		return nil, ErrOutOfRange
	}

	return s.play("roulette", userID, bet, func(forced bool) (games.Result, string) {
		drawn := s.roller.SpinWheel()
		if forced {
			drawn = number
		}

		return games.Roulette(bet, number, drawn), strconv.Itoa(drawn)
	})
}

// Slots spins three reels.
func (s *Service) Slots(userID string, bet int64) (*Round, error) {
	return s.play("slots", userID, bet, func(forced bool) (games.Result, string) {
		reels := s.roller.SpinReels()
		if forced {
			reels = games.JackpotReels
		}

		parts := make([]string, len(reels))
		for i, sym := range reels {
			parts[i] = string(sym)
		}

		return games.Slots(bet, reels), strings.Join(parts, " ")
	})
}

// play runs the shared round protocol. draw receives whether the
// outcome must be forced and returns the verdict plus a rendering of
// the drawn outcome.
func (s *Service) play(game, userID string, bet int64, draw func(forced bool) (games.Result, string)) (*Round, error) {
	if bet < 1 {
		return nil, ErrInvalidBet
	}

	userID = ledger.NormalizeID(userID)

	degraded := false

	err := s.ledger.Remove(userID, bet)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, err
		}

		// Snapshot write failed; the debit stands in memory.
		degraded = true
		s.snapshotFailed(game, userID, err)
	}

	result, outcome := draw(s.forcedFor(userID))

	if result.Win {
		err = s.ledger.Add(userID, result.Payout)
		if err != nil {
			degraded = true
			s.snapshotFailed(game, userID, err)
		}
	}

	s.metrics.ChipsWagered.WithLabelValues(game).Add(float64(bet))
	if result.Win {
		s.metrics.GamesPlayed.WithLabelValues(game, "win").Inc()
		s.metrics.ChipsPaidOut.WithLabelValues(game).Add(float64(result.Payout))
	} else {
		s.metrics.GamesPlayed.WithLabelValues(game, "loss").Inc()
	}

	balance := s.ledger.Balance(userID)

	return &Round{
		Ref:      uuid.NewString(),
		Game:     game,
		Outcome:  outcome,
		Win:      result.Win,
		Payout:   result.Payout,
		Net:      result.Payout - bet,
		Balance:  balance,
		Broke:    balance == 0,
		Degraded: degraded,
	}, nil
}

func (s *Service) forcedFor(userID string) bool {
	return s.superuser != "" && userID == s.superuser && s.forceWin.Load()
}

func (s *Service) snapshotFailed(game, userID string, err error) {
	slog.Error("chips snapshot write failed during round",
		"game", game, "user", userID, "error", err)
	s.metrics.SnapshotFailures.WithLabelValues("ledger").Inc()
}
