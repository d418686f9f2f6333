package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mkhasanov/engagement-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware приложения.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Route("/api/engagements", func(r chi.Router) {
			r.Get("/", h.GetEngagements)
			r.Get("/{id}", h.GetEngagement)
			r.Get("/{id}/decisions", h.GetDecisions)
			r.Put("/{id}", h.UpdateEngagement)
		})

		r.Route("/api/days/{id}", func(r chi.Router) {
			r.Post("/start", h.StartDay)
			r.Post("/otp", h.RequestOTP)
			r.Post("/complete", h.CompleteDay)
		})

		r.Route("/api/payouts", func(r chi.Router) {
			r.Get("/", h.GetPayouts)
			r.Post("/withdraw", h.Withdraw)
			r.Get("/withdrawals", h.GetWithdrawals)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
