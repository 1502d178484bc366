// -----------------------------------------------------------------------
// Routes - HTTP route configuration
// -----------------------------------------------------------------------

package server

import (
	"net/http"

	"github.com/ternarybob/aestimo/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Jobs
	mux.HandleFunc("/jobs", s.app.JobHandler.SubmitHandler)  // POST - create job + payment request
	mux.HandleFunc("/jobs/", s.app.JobHandler.StatusHandler) // GET /{job_id} - job status and result

	// WebSocket event stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)
	mux.HandleFunc("/events/recent", s.app.WSHandler.RecentEventsHandler)

	// Discovery and health
	mux.HandleFunc("/schema", handlers.SchemaHandler)
	mux.HandleFunc("/input_schema", handlers.SchemaHandler) // legacy path alias
	mux.HandleFunc("/availability", s.app.APIHandler.AvailabilityHandler)
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/version", s.app.APIHandler.VersionHandler)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
