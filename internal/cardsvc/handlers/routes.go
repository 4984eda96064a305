package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/cards", h.CreateCardHandler)
			r.Get("/cards/nearby", h.NearbyCardsHandler)
			r.Get("/cards/{cardId}", h.GetCardHandler)
			r.Put("/cards/{cardId}", h.UpdateCardHandler)
			r.Delete("/cards/{cardId}", h.DeleteCardHandler)

			r.Post("/cards/{cardId}/locations", h.RecordLocationHandler)
			r.Get("/cards/{cardId}/locations", h.LocationHistoryHandler)
			r.Get("/cards/{cardId}/locations/last", h.LastLocationHandler)

			r.Post("/cards/{cardId}/assign", h.AssignCardHandler)
			r.Post("/cards/{cardId}/unassign", h.UnassignCardHandler)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
