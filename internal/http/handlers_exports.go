package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rowboat-io/rowboat/internal/core"
	"github.com/rowboat-io/rowboat/internal/domain/model"
)

// ExportTrigger runs an export on demand.
type ExportTrigger interface {
	TriggerRun(ctx context.Context, name string) (*model.Run, error)
}

// ExportHandlers serves the export definition and run history endpoints.
type ExportHandlers struct {
	Exports core.ExportRepository
	Runs    core.RunRepository
	Trigger ExportTrigger
}

// exportView is the wire shape for an export definition. The query is
// included; rowboat's API is operator-facing and the query is not a secret.
type exportView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Query     string  `json:"query"`
	SinkType  string  `json:"sink_type"`
	Format    string  `json:"format"`
	Filename  string  `json:"filename"`
	Schedule  string  `json:"schedule"`
	Transform string  `json:"transform,omitempty"`
	Enabled   bool    `json:"enabled"`
	LastRunAt *string `json:"last_run_at"`
	NextRunAt *string `json:"next_run_at"`
}

func toExportView(e model.Export) exportView {
	v := exportView{
		ID:        e.ID,
		Name:      e.Name,
		Query:     e.Query,
		SinkType:  string(e.SinkType),
		Format:    string(e.Format),
		Filename:  e.OutputFilename(),
		Schedule:  e.Schedule,
		Transform: e.Transform,
		Enabled:   e.Enabled,
	}
	if e.LastRunAt != nil {
		s := e.LastRunAt.UTC().Format(time.RFC3339)
		v.LastRunAt = &s
	}
	if sched, err := model.ParseSchedule(e.Schedule); err == nil {
		next := sched.Next(nextFrom(e))
		s := next.Format(time.RFC3339)
		v.NextRunAt = &s
	}
	return v
}

// list handles GET /exports.
func (h *ExportHandlers) list(w http.ResponseWriter, r *http.Request) {
	exports, err := h.Exports.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	views := make([]exportView, 0, len(exports))
	for _, e := range exports {
		views = append(views, toExportView(e))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"exports": views})
}

// get handles GET /exports/{name} and includes recent run history.
func (h *ExportHandlers) get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	e, err := h.Exports.GetByName(r.Context(), name)
	if err != nil {
		WriteError(w, err)
		return
	}

	limit := parseLimit(r, 20)
	runs, err := h.Runs.RecentByExport(r.Context(), e.ID, limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"export": toExportView(*e),
		"runs":   runs,
	})
}

// run handles POST /exports/{name}/run.
func (h *ExportHandlers) run(w http.ResponseWriter, r *http.Request) {
	run, err := h.Trigger.TriggerRun(r.Context(), r.PathValue("name"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"run": run})
}

// runs handles GET /runs.
func (h *ExportHandlers) recentRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Runs.Recent(r.Context(), parseLimit(r, 50))
	if err != nil {
		WriteError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return fallback
	}
	return n
}

func nextFrom(e model.Export) time.Time {
	if e.LastRunAt != nil {
		return e.LastRunAt.UTC()
	}
	return time.Now().UTC()
}
