package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/league-system/health"
	"github.com/Dosada05/league-system/resilience"
)

type HealthHandler struct {
	monitor  *health.Monitor
	registry *resilience.Registry
	logger   *slog.Logger
}

func NewHealthHandler(monitor *health.Monitor, registry *resilience.Registry, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{monitor: monitor, registry: registry, logger: logger}
}

// Evaluate отдаёт агрегированный отчёт. ?force=true обходит кэш.
// Критический отчёт — это 200 с данными: деградация системы не делает
// сам эндпоинт недоступным.
func (h *HealthHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	var report *health.Report
	err := h.registry.ProtectedCall(r.Context(), resilience.OpEvaluateHealth, "", func(ctx context.Context) error {
		report = h.monitor.Evaluate(ctx, force)
		return nil
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report, nil)
}
