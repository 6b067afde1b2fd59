package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/resilience"
	"github.com/Dosada05/league-system/scheduling"
	"github.com/Dosada05/league-system/services"
)

type SeasonHandler struct {
	seasons   services.SeasonService
	fixtures  services.FixtureService
	schedule  services.ScheduleService
	standings services.StandingsService
	registry  *resilience.Registry
	defaults  scheduling.Constraints
	logger    *slog.Logger
}

func NewSeasonHandler(
	seasons services.SeasonService,
	fixtures services.FixtureService,
	schedule services.ScheduleService,
	standings services.StandingsService,
	registry *resilience.Registry,
	defaults scheduling.Constraints,
	logger *slog.Logger,
) *SeasonHandler {
	return &SeasonHandler{
		seasons:   seasons,
		fixtures:  fixtures,
		schedule:  schedule,
		standings: standings,
		registry:  registry,
		defaults:  defaults,
		logger:    logger,
	}
}

type createSeasonRequest struct {
	LeagueID          int       `json:"league_id"`
	Name              string    `json:"name"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	RegistrationStart time.Time `json:"registration_start"`
	RegistrationEnd   time.Time `json:"registration_end"`
}

func (h *SeasonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSeasonRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	season, err := h.seasons.CreateSeason(r.Context(), &models.Season{
		LeagueID:          req.LeagueID,
		Name:              req.Name,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"season": season}, nil)
}

func (h *SeasonHandler) Get(w http.ResponseWriter, r *http.Request) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	season, err := h.seasons.GetSeason(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"season": season}, nil)
}

type registerTeamRequest struct {
	Name        string   `json:"name"`
	PlayerOne   string   `json:"player_one"`
	PlayerTwo   string   `json:"player_two"`
	Substitutes []string `json:"substitutes,omitempty"`
}

func (h *SeasonHandler) RegisterTeam(w http.ResponseWriter, r *http.Request) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	var req registerTeamRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	team, err := h.seasons.RegisterTeam(r.Context(), &models.Team{
		SeasonID:    seasonID,
		Name:        req.Name,
		PlayerOne:   req.PlayerOne,
		PlayerTwo:   req.PlayerTwo,
		Substitutes: req.Substitutes,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil)
}

type transitionRequest struct {
	Status models.SeasonStatus `json:"status"`
}

func (h *SeasonHandler) Transition(w http.ResponseWriter, r *http.Request) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	var req transitionRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	season, err := h.seasons.TransitionStatus(r.Context(), seasonID, req.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"season": season}, nil)
}

// Start запускает сезон: генерация календаря и расстановка по кортам идут
// под защитой брейкера generate_fixtures.
func (h *SeasonHandler) Start(w http.ResponseWriter, r *http.Request) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var report *services.SeasonStartReport
	err = h.registry.ProtectedCall(r.Context(), resilience.OpGenerateFixtures, scopeForSeason(seasonID), func(ctx context.Context) error {
		var callErr error
		report, callErr = h.seasons.StartSeason(ctx, seasonID, h.defaults)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil)
}

// GenerateFixtures строит календарь без расстановки по кортам.
func (h *SeasonHandler) GenerateFixtures(w http.ResponseWriter, r *http.Request) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var matches []*models.Match
	err = h.registry.ProtectedCall(r.Context(), resilience.OpGenerateFixtures, scopeForSeason(seasonID), func(ctx context.Context) error {
		var callErr error
		matches, callErr = h.fixtures.GenerateAndSaveFixtures(ctx, seasonID)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}

func (h *SeasonHandler) ScheduleMatches(w http.ResponseWriter, r *http.Request) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var report *services.ScheduleReport
	err = h.registry.ProtectedCall(r.Context(), resilience.OpScheduleMatches, scopeForSeason(seasonID), func(ctx context.Context) error {
		var callErr error
		report, callErr = h.schedule.ScheduleSeason(ctx, seasonID, h.defaults)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil)
}

func (h *SeasonHandler) Standings(w http.ResponseWriter, r *http.Request) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.standings.GetStandings(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"standings": rows}, nil)
}

func (h *SeasonHandler) RecomputeStandings(w http.ResponseWriter, r *http.Request) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var rows []*models.Standing
	err = h.registry.ProtectedCall(r.Context(), resilience.OpRecomputeStandings, scopeForSeason(seasonID), func(ctx context.Context) error {
		var callErr error
		rows, callErr = h.standings.RecomputeSeason(ctx, seasonID)
		return callErr
	})
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"standings": rows}, nil)
}
