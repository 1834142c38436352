package api

import (
	"errors"
	"net/http"
	"sort"

	"chipbot/internal/ledger"
	"chipbot/internal/market"
)

// --- Poll handlers ---

type optionSummary struct {
	Name  string `json:"name"`
	Bets  int    `json:"bets"`
	Chips int64  `json:"chips"`
}

// GetPoll handles GET /poll: a display snapshot of the active poll.
func (h *HandlerProvider) GetPoll(w http.ResponseWriter, r *http.Request) {
	data := h.market.Data()
	if !data.Active {
		writeError(w, http.StatusNotFound, "no active poll")
		return
	}

	options := make([]optionSummary, 0, len(data.Options))
	for name, book := range data.Options {
		var staked int64
		for _, stake := range book {
			staked += stake
		}
		options = append(options, optionSummary{Name: name, Bets: len(book), Chips: staked})
	}

	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })

	writeJSON(w, http.StatusOK, map[string]any{
		"question":  data.Question,
		"closed":    data.Closed,
		"options":   options,
		"totalBets": data.TotalBets,
	})
}

type pollBetRequest struct {
	Option string `json:"option"`
	Amount int64  `json:"amount"`
}

// PlacePollBet handles POST /user/{userID}/poll/bet. The stake is
// debited through the ledger's solvency gate before it is recorded;
// if recording then fails the debit is not refunded (the two
// components keep independent locks).
func (h *HandlerProvider) PlacePollBet(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	var req pollBetRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Amount < 1 {
		writeError(w, http.StatusBadRequest, "amount must be at least 1 chip")
		return
	}

	err = h.ledger.Remove(userID, req.Amount)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		writeError(w, http.StatusConflict, "insufficient chips")
		return
	}

	warn := h.snapshotTrouble("ledger", err)

	err = h.market.PlaceBet(userID, req.Option, req.Amount)
	switch {
	case errors.Is(err, market.ErrNoActivePoll):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, market.ErrInvalidOption):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, market.ErrPollClosed), errors.Is(err, market.ErrOptionLocked):
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	// Remaining errors are snapshot failures: the stake is recorded.
	warn = h.snapshotTrouble("market", err) || warn

	h.metrics.PollBetsPlaced.Inc()
	h.metrics.PollChipsStaked.Add(float64(req.Amount))

	resp := map[string]any{
		"status": "ok",
		"option": req.Option,
		"amount": req.Amount,
		"chips":  h.ledger.Balance(userID),
	}
	if warn {
		resp["warning"] = warningDegraded
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Admin handlers ---

type createPollRequest struct {
	Question string `json:"question"`
	Option1  string `json:"option1"`
	Option2  string `json:"option2"`
}

// CreatePoll handles POST /admin/poll.
func (h *HandlerProvider) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Question == "" || req.Option1 == "" || req.Option2 == "" {
		writeError(w, http.StatusBadRequest, "question and both options are required")
		return
	}
	if req.Option1 == req.Option2 {
		writeError(w, http.StatusBadRequest, "options must be distinct")
		return
	}

	err = h.market.Create(req.Question, req.Option1, req.Option2)
	if errors.Is(err, market.ErrAlreadyActive) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	resp := map[string]any{
		"status":   "ok",
		"question": req.Question,
		"options":  []string{req.Option1, req.Option2},
	}
	if h.snapshotTrouble("market", err) {
		resp["warning"] = warningDegraded
	}

	writeJSON(w, http.StatusOK, resp)
}

// ClosePoll handles POST /admin/poll/close.
func (h *HandlerProvider) ClosePoll(w http.ResponseWriter, r *http.Request) {
	err := h.market.Close()
	switch {
	case errors.Is(err, market.ErrNoActivePoll):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, market.ErrAlreadyClosed):
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	resp := map[string]any{"status": "ok"}
	if h.snapshotTrouble("market", err) {
		resp["warning"] = warningDegraded
	}

	writeJSON(w, http.StatusOK, resp)
}

type resolvePollRequest struct {
	WinningOption string `json:"winningOption"`
}

// ResolvePoll handles POST /admin/poll/resolve: ends the poll and
// credits each winner's share of the pot to the ledger.
func (h *HandlerProvider) ResolvePoll(w http.ResponseWriter, r *http.Request) {
	var req resolvePollRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payouts, err := h.market.Resolve(req.WinningOption)
	switch {
	case errors.Is(err, market.ErrNoActivePoll):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, market.ErrInvalidOption):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	warn := h.snapshotTrouble("market", err)

	for userID, amount := range payouts {
		err = h.ledger.Add(userID, amount)
		warn = h.snapshotTrouble("ledger", err) || warn
	}

	h.metrics.PollsResolved.Inc()

	if payouts == nil {
		payouts = map[string]int64{}
	}

	resp := map[string]any{
		"status":        "ok",
		"winningOption": req.WinningOption,
		"payouts":       payouts,
	}
	if warn {
		resp["warning"] = warningDegraded
	}

	writeJSON(w, http.StatusOK, resp)
}

type setChipsRequest struct {
	Amount int64 `json:"amount"`
}

// SetChips handles PUT /admin/user/{userID}/chips: unconditional
// balance overwrite.
func (h *HandlerProvider) SetChips(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	var req setChipsRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must be non-negative")
		return
	}

	err = h.ledger.Set(userID, req.Amount)

	resp := map[string]any{
		"status": "ok",
		"userId": userID,
		"chips":  req.Amount,
	}
	if h.snapshotTrouble("ledger", err) {
		resp["warning"] = warningDegraded
	}

	writeJSON(w, http.StatusOK, resp)
}

// ResetBroke handles POST /admin/reset-broke: every zero-balance
// account returns to the default chips.
func (h *HandlerProvider) ResetBroke(w http.ResponseWriter, r *http.Request) {
	count, err := h.ledger.ResetBroke()

	resp := map[string]any{
		"status": "ok",
		"reset":  count,
	}
	if h.snapshotTrouble("ledger", err) {
		resp["warning"] = warningDegraded
	}

	writeJSON(w, http.StatusOK, resp)
}

type forceWinRequest struct {
	Enabled bool `json:"enabled"`
}

// SetForceWin handles POST /admin/force-win: toggles the privileged
// always-win override.
func (h *HandlerProvider) SetForceWin(w http.ResponseWriter, r *http.Request) {
	var req forceWinRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.arcade.SetForceWin(req.Enabled)

	writeJSON(w, http.StatusOK, map[string]any{"enabled": req.Enabled})
}
