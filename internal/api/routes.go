package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Timeout(15 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	// v1 API routes
	r.Route("/v1", func(r chi.Router) {
		// Assets
		r.Get("/assets", h.ListAssets)
		r.Get("/assets/{id}", h.GetAsset)

		// User portfolio
		r.Route("/users", func(r chi.Router) {
			r.Get("/{address}/position", h.GetUserPosition)
			r.Get("/{address}/health", h.GetUserHealth)
		})

		// Ledger operations
		r.Route("/operations", func(r chi.Router) {
			r.Post("/supply", h.Supply)
			r.Post("/withdraw", h.Withdraw)
			r.Post("/borrow", h.Borrow)
			r.Post("/repay", h.Repay)
			r.Post("/liquidate", h.Liquidate)
		})

		// Operation history
		r.Get("/events", h.ListEvents)

		// Cross-chain adapter
		r.Route("/crosschain", func(r chi.Router) {
			r.Post("/inbound", h.InboundTransfer)
			r.Post("/withdraw", h.WithdrawCrossChain)
			r.Post("/borrow", h.BorrowCrossChain)
			r.Get("/pending", h.PendingDeliveries)
			r.Post("/pending/{id}/resolve", h.ResolveDelivery)
			r.Get("/routing", h.GetRoutingAddress)
		})

		// Owner-gated configuration
		r.Route("/admin", func(r chi.Router) {
			r.Post("/assets", h.AddAsset)
			r.Patch("/assets/{id}/support", h.SetAssetSupported)
			r.Post("/assets/{id}/origin", h.MapOriginAsset)
			r.Get("/chains", h.ListAllowedChains)
			r.Post("/chains", h.SetAllowedChain)
			r.Post("/routing", h.UpdateRoutingAddress)
		})
	})

	return r
}
