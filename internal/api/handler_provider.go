package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"chipbot/internal/games"
	"chipbot/internal/ledger"
	"chipbot/internal/market"
	"chipbot/internal/observability"
	"chipbot/internal/services/arcade"
)

// warningDegraded is attached to responses whose in-memory mutation
// succeeded but whose snapshot write failed. Memory is authoritative;
// the caller may warn the user that durability is degraded.
const warningDegraded = "snapshot write failed; state held in memory only"

// HandlerProvider wraps the core components and exposes HTTP handlers.
type HandlerProvider struct {
	ledger    *ledger.Ledger
	market    *market.Market
	arcade    *arcade.Service
	metrics   *observability.Metrics
	superuser string
}

// NewHandler returns a new handler provider. superuserID is excluded
// from the public leaderboard.
func NewHandler(l *ledger.Ledger, m *market.Market, a *arcade.Service, metrics *observability.Metrics, superuserID string) *HandlerProvider {
	return &HandlerProvider{
		ledger:    l,
		market:    m,
		arcade:    a,
		metrics:   metrics,
		superuser: ledger.NormalizeID(superuserID),
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseUserIDFromPath reads `{userID}` from routes like
// GET /user/{userID}/chips. Platform ids are decimal integers; the
// canonical ledger key is their string form.
func parseUserIDFromPath(r *http.Request) (string, error) {
	return normalizeUserID(chi.URLParam(r, "userID"))
}

func normalizeUserID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("missing userID")
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid userID: %w", err)
	}
	if id == 0 {
		return "", fmt.Errorf("invalid userID: must be positive")
	}

	return strconv.FormatUint(id, 10), nil
}

// decodeJSON reads a size-capped request body into dst, rejecting
// unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

// snapshotTrouble logs and counts a failed snapshot write. Returns
// true when the response should carry the durability warning.
func (h *HandlerProvider) snapshotTrouble(component string, err error) bool {
	if err == nil {
		return false
	}

	slog.Error("state snapshot write failed", "component", component, "error", err)
	h.metrics.SnapshotFailures.WithLabelValues(component).Inc()

	return true
}

// --- Ledger handlers ---

// GetChips handles GET /user/{userID}/chips. First access creates the
// account with the default balance.
func (h *HandlerProvider) GetChips(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId": userID,
		"chips":  h.ledger.Balance(userID),
	})
}

// GetRank handles GET /user/{userID}/rank.
func (h *HandlerProvider) GetRank(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	rank, ok := h.ledger.Rank(userID)
	if !ok {
		writeError(w, http.StatusNotFound, "user has no chips account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId": userID,
		"rank":   rank,
	})
}

// Leaderboard handles GET /leaderboard?limit=n. The privileged account
// is excluded, matching the public leaderboard rules.
func (h *HandlerProvider) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": h.ledger.Top(limit, h.superuser),
	})
}

// BrokeUsers handles GET /broke.
func (h *HandlerProvider) BrokeUsers(w http.ResponseWriter, r *http.Request) {
	broke := h.ledger.Broke()
	if broke == nil {
		broke = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"userIds": broke})
}

type payRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Pay handles POST /user/{userID}/pay: transfer chips to another user.
func (h *HandlerProvider) Pay(w http.ResponseWriter, r *http.Request) {
	from, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	var req payRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	to, err := normalizeUserID(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	if req.Amount < 1 {
		writeError(w, http.StatusBadRequest, "amount must be at least 1 chip")
		return
	}

	err = h.ledger.Transfer(from, to, req.Amount)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		writeError(w, http.StatusConflict, "insufficient chips")
		return
	}

	resp := map[string]any{
		"status": "ok",
		"from":   from,
		"to":     to,
		"amount": req.Amount,
	}
	if h.snapshotTrouble("ledger", err) {
		resp["warning"] = warningDegraded
	}

	writeJSON(w, http.StatusOK, resp)
}

type playRequest struct {
	Bet    int64  `json:"bet"`
	Side   string `json:"side,omitempty"`
	Number *int   `json:"number,omitempty"`
}

// Play handles POST /user/{userID}/play/{game} for flip, roll,
// roulette and slots.
func (h *HandlerProvider) Play(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	var req playRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var round *arcade.Round

	switch chi.URLParam(r, "game") {
	case "flip":
		round, err = h.arcade.Flip(userID, req.Bet, games.Side(strings.ToLower(req.Side)))
	case "roll":
		if req.Number == nil {
			writeError(w, http.StatusBadRequest, "number is required")
			return
		}
		round, err = h.arcade.Roll(userID, req.Bet, *req.Number)
	case "roulette":
		if req.Number == nil {
			writeError(w, http.StatusBadRequest, "number is required")
			return
		}
		round, err = h.arcade.Roulette(userID, req.Bet, *req.Number)
	case "slots":
		round, err = h.arcade.Slots(userID, req.Bet)
	default:
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, arcade.ErrInvalidBet),
			errors.Is(err, arcade.ErrInvalidSide),
			errors.Is(err, arcade.ErrOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			writeError(w, http.StatusConflict, "insufficient chips")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusOK, round)
}
