package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/resilience"
	"github.com/Dosada05/league-system/services"
)

type MatchHandler struct {
	schedule  services.ScheduleService
	standings services.StandingsService
	registry  *resilience.Registry
	logger    *slog.Logger
}

func NewMatchHandler(
	schedule services.ScheduleService,
	standings services.StandingsService,
	registry *resilience.Registry,
	logger *slog.Logger,
) *MatchHandler {
	return &MatchHandler{
		schedule:  schedule,
		standings: standings,
		registry:  registry,
		logger:    logger,
	}
}

type submitResultRequest struct {
	Score         []models.SetScore `json:"score"`
	HomeConfirmed bool              `json:"home_confirmed"`
	AwayConfirmed bool              `json:"away_confirmed"`
}

func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	var req submitResultRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var match *models.Match
	err = h.registry.ProtectedCall(r.Context(), resilience.OpSubmitResult, scopeForMatch(matchID), func(ctx context.Context) error {
		var callErr error
		match, callErr = h.standings.SubmitResult(ctx, matchID, req.Score, req.HomeConfirmed, req.AwayConfirmed)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type confirmResultRequest struct {
	TeamID int `json:"team_id"`
}

func (h *MatchHandler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	var req confirmResultRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var match *models.Match
	err = h.registry.ProtectedCall(r.Context(), resilience.OpSubmitResult, scopeForMatch(matchID), func(ctx context.Context) error {
		var callErr error
		match, callErr = h.standings.ConfirmResult(ctx, matchID, req.TeamID)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type walkoverRequest struct {
	WinnerTeamID int `json:"winner_team_id"`
}

func (h *MatchHandler) RecordWalkover(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	var req walkoverRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var match *models.Match
	err = h.registry.ProtectedCall(r.Context(), resilience.OpSubmitResult, scopeForMatch(matchID), func(ctx context.Context) error {
		var callErr error
		match, callErr = h.standings.RecordWalkover(ctx, matchID, req.WinnerTeamID)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type rescheduleRequest struct {
	NewStart time.Time `json:"new_start"`
	Court    *string   `json:"court,omitempty"`
}

func (h *MatchHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	var req rescheduleRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var match *models.Match
	err = h.registry.ProtectedCall(r.Context(), resilience.OpRescheduleMatch, scopeForMatch(matchID), func(ctx context.Context) error {
		var callErr error
		match, callErr = h.schedule.RescheduleMatch(ctx, matchID, req.NewStart, req.Court)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type bulkRescheduleRequest struct {
	MatchIDs []int  `json:"match_ids"`
	Reason   string `json:"reason"`
}

func (h *MatchHandler) BulkReschedule(w http.ResponseWriter, r *http.Request) {
	var req bulkRescheduleRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.MatchIDs) == 0 {
		errorResponse(w, http.StatusBadRequest, "match_ids must not be empty")
		return
	}

	var result *services.BulkRescheduleResult
	err := h.registry.ProtectedCall(r.Context(), resilience.OpRescheduleMatch, "bulk", func(ctx context.Context) error {
		var callErr error
		result, callErr = h.schedule.BulkReschedule(ctx, req.MatchIDs, req.Reason)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil)
}

func scopeForMatch(matchID int) string {
	return "match:" + strconv.Itoa(matchID)
}
