package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/coopfoundry/divvy/api/metrics"
	"github.com/coopfoundry/divvy/ledger"
)

// Server wires the distribution engine to the HTTP surface.
type Server struct {
	log    *slog.Logger
	engine *ledger.Engine
}

// NewServer creates the HTTP server around the given engine.
func NewServer(log *slog.Logger, engine *ledger.Engine) *Server {
	return &Server{log: log, engine: engine}
}

// Router builds the chi router: operations, the owner-gated admin surface and
// the unrestricted (rate-limited) query surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Caller"},
		MaxAge:         300,
	}))
	r.Use(RequestIDMiddleware)
	r.Use(metrics.Middleware)

	r.Route("/api", func(r chi.Router) {
		// Operations.
		r.Post("/ventures/{ventureID}/deposits", s.Deposit)
		r.Post("/ventures/{ventureID}/distributions", s.Initiate)
		r.Post("/distributions/{distributionID}/settle", s.Distribute)
		r.Post("/distributions/{distributionID}/claims", s.Claim)

		// Admin surface.
		r.Put("/admin/owner", s.SetOwner)
		r.Post("/admin/pause", s.Pause)
		r.Post("/admin/unpause", s.Unpause)
		r.Put("/admin/fee", s.SetFeePercent)
		r.Put("/admin/vesting", s.SetVesting)
		r.Put("/ventures/{ventureID}/config", s.ConfigureVenture)

		// Query surface.
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(QueryRateLimiter))
			r.Get("/status", s.Status)
			r.Get("/version", s.Version)
			r.Get("/ventures/{ventureID}/config", s.VentureConfig)
			r.Get("/ventures/{ventureID}/pending", s.PendingPool)
			r.Get("/ventures/{ventureID}/balances/{memberID}", s.MemberBalance)
			r.Get("/distributions/{distributionID}", s.Distribution)
			r.Get("/distributions/{distributionID}/entries", s.DistributionEntries)
			r.Get("/distributions/{distributionID}/vesting/{memberID}", s.VestingSchedule)
		})
	})

	return r
}

// caller returns the caller identity asserted by the request. Ownership is
// verified by the engine against its persisted owner.
func caller(r *http.Request) string {
	return r.Header.Get("X-Caller")
}
