package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - catalog consumers
	mux.HandleFunc("/api/products/", s.app.ProductHandler.GetProductHandler)
	mux.HandleFunc("/api/commands/wtb", s.app.CommandHandler.WantToBuyHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// API routes - system
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// Everything else is a JSON 404
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
