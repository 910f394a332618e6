package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	usecases_port "github.com/Bonaventura-EW/olx-monitor/internal/core/port/usecases"
)

// MonitorHandler exposes the dashboard queries and the manual run trigger.
type MonitorHandler struct {
	dashboardUC usecases_port.DashboardQueriesPort
	runUC       usecases_port.RunMonitoringPort
}

func NewMonitorHandler(dashboardUC usecases_port.DashboardQueriesPort, runUC usecases_port.RunMonitoringPort) *MonitorHandler {
	return &MonitorHandler{
		dashboardUC: dashboardUC,
		runUC:       runUC,
	}
}

// GetPriceHistory returns every tracked listing with its full price series.
func (h *MonitorHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	listings, err := h.dashboardUC.PriceHistory(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("PriceHistoryHandler: failed to load history: %v", err))
		return
	}

	RespondWithJSON(w, http.StatusOK, listings)
}

// GetProfileStates returns the per-profile presence state.
func (h *MonitorHandler) GetProfileStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.dashboardUC.ProfileStates(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("ProfileStatesHandler: failed to load states: %v", err))
		return
	}

	RespondWithJSON(w, http.StatusOK, states)
}

// GetLastRun returns the most recent run report.
func (h *MonitorHandler) GetLastRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.dashboardUC.LastRun(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("LastRunHandler: failed to load report: %v", err))
		return
	}
	if report == nil {
		WriteJSONError(w, http.StatusNotFound, "LastRunHandler: no runs recorded yet")
		return
	}

	RespondWithJSON(w, http.StatusOK, report)
}

// GetMarket returns the aggregated market view of the current listings.
func (h *MonitorHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	market, err := h.dashboardUC.Market(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("MarketHandler: failed to aggregate market: %v", err))
		return
	}

	RespondWithJSON(w, http.StatusOK, market)
}

// StartRun triggers a monitoring run in the background. Runs are serialized;
// a request while one is in flight gets 409.
func (h *MonitorHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	err := h.runUC.StartAsync(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			WriteJSONError(w, http.StatusConflict, "StartRunHandler: a run is already in progress")
			return
		}
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("StartRunHandler: failed to start run: %v", err))
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}
