// Package games holds the pure payout rules for the wagering
// minigames. Every evaluator takes the bet and an already-drawn
// outcome and returns the verdict; drawing lives in Roller so the
// command layer can substitute a forced outcome for the privileged
// account.
//
// Payouts are gross amounts to credit. The bet itself is debited
// before the draw, so a winning flip pays 2×bet for a net gain of one
// bet, and a loss credits nothing.
package games

// Side is a coin face.
type Side string

const (
	Heads Side = "heads"
	Tails Side = "tails"
)

// Symbol is one slot reel symbol.
type Symbol string

// Symbols is the slot machine alphabet.
var Symbols = [7]Symbol{"🍒", "🍋", "🍊", "🍇", "🍉", "🍌", "🍓"}

// JackpotReels is the forced three-of-a-kind used for the privileged
// always-win override.
var JackpotReels = [3]Symbol{"🍉", "🍉", "🍉"}

// Result is the verdict for one round. Payout is zero on a loss.
type Result struct {
	Win    bool
	Payout int64
}

// Flip pays 2×bet when the drawn face matches the chosen one.
func Flip(bet int64, chosen, drawn Side) Result {
	if drawn == chosen {
		return Result{Win: true, Payout: bet * 2}
	}

	return Result{}
}

// Roll pays 6×bet when the die lands on the chosen number.
func Roll(bet int64, chosen, drawn int) Result {
	if drawn == chosen {
		return Result{Win: true, Payout: bet * 6}
	}

	return Result{}
}

// Roulette pays 36×bet when the wheel lands on the chosen number.
func Roulette(bet int64, chosen, drawn int) Result {
	if drawn == chosen {
		return Result{Win: true, Payout: bet * 36}
	}

	return Result{}
}

// Slots pays 15×bet for three of a kind and 3×bet for a pair in the
// first two or last two reels. A pair split across the outer reels
// does not pay.
func Slots(bet int64, reels [3]Symbol) Result {
	switch {
	case reels[0] == reels[1] && reels[1] == reels[2]:
		return Result{Win: true, Payout: bet * 15}
	case reels[0] == reels[1] || reels[1] == reels[2]:
		return Result{Win: true, Payout: bet * 3}
	default:
		return Result{}
	}
}
