package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// User and portfolio routes
	api.HandleFunc("/users", handler.CreateUser).Methods("POST")
	api.HandleFunc("/users/{id}", handler.GetUser).Methods("GET")
	api.HandleFunc("/users/{id}/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/users/{id}/value", handler.GetValue).Methods("GET")
	api.HandleFunc("/users/{id}/value/series", handler.GetValueSeries).Methods("GET")
	api.HandleFunc("/users/{id}/transactions", handler.GetTransactions).Methods("GET")
	api.HandleFunc("/users/{id}/buy", handler.Buy).Methods("POST")
	api.HandleFunc("/users/{id}/sell", handler.Sell).Methods("POST")
	api.HandleFunc("/users/{id}/reset", handler.ResetUser).Methods("POST")
	api.HandleFunc("/users/{id}/notifications", handler.UpdateNotifications).Methods("PATCH")

	// Team routes
	api.HandleFunc("/teams/{id}/ranking", handler.GetRanking).Methods("GET")

	// Chat adapter route
	api.HandleFunc("/messages", handler.PostMessage).Methods("POST")

	return r
}
