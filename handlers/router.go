package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/scrumlr-sync/services"
)

// NewRouter wires the mirror endpoints. Metrics are public; everything under
// /api needs a token when auth is enabled.
func NewRouter(state *StateHandler, auth *services.MirrorAuth, log *logrus.Entry) http.Handler {
	authMiddleware := NewAuthMiddleware(auth)

	r := mux.NewRouter()
	r.Use(Logging(log))

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Auth)
	api.HandleFunc("/auth/verify", VerifyToken).Methods(http.MethodGet)
	api.HandleFunc("/state", state.GetState).Methods(http.MethodGet)
	api.HandleFunc("/toasts", state.GetToasts).Methods(http.MethodGet)
	api.HandleFunc("/toasts/{id}", state.DismissToast).Methods(http.MethodDelete)
	api.HandleFunc("/toasts/{id}/retry", state.RetryToast).Methods(http.MethodPost)
	api.HandleFunc("/ws", state.HandleWebSocket)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
