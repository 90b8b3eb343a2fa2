package httpx

import (
	"net/http"

	"github.com/rowboat-io/rowboat/internal/core"
)

// RouterServices holds the dependencies the HTTP router needs.
type RouterServices struct {
	Exports core.ExportRepository
	Runs    core.RunRepository
	Trigger ExportTrigger
	DB      Pinger
}

// NewRouter creates the status and control API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	handlers := &ExportHandlers{
		Exports: services.Exports,
		Runs:    services.Runs,
		Trigger: services.Trigger,
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.DB))

	mux.HandleFunc("GET /exports", handlers.list)
	mux.HandleFunc("GET /exports/{name}", handlers.get)
	if services.Trigger != nil {
		mux.HandleFunc("POST /exports/{name}/run", handlers.run)
	}
	mux.HandleFunc("GET /runs", handlers.recentRuns)

	return mux
}
