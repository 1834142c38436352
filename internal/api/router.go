package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers all API endpoints. Admin routes are guarded by
// the X-Admin-Token header; everything else maps one-to-one onto the
// public bot commands.
func NewRouter(h *HandlerProvider, adminToken string, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/leaderboard", h.Leaderboard)
	r.Get("/broke", h.BrokeUsers)
	r.Get("/poll", h.GetPoll)

	r.Route("/user/{userID}", func(r chi.Router) {
		r.Get("/chips", h.GetChips)
		r.Get("/rank", h.GetRank)
		r.Post("/pay", h.Pay)
		r.Post("/play/{game}", h.Play)
		r.Post("/poll/bet", h.PlacePollBet)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminOnly(adminToken))
		r.Post("/poll", h.CreatePoll)
		r.Post("/poll/close", h.ClosePoll)
		r.Post("/poll/resolve", h.ResolvePoll)
		r.Put("/user/{userID}/chips", h.SetChips)
		r.Post("/reset-broke", h.ResetBroke)
		r.Post("/force-win", h.SetForceWin)
	})

	return r
}
