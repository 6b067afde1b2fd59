package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/standings"
)

func TestSubmitResultRejectsEmptyScore(t *testing.T) {
	svc := NewStandingsService(nil, nil, nil, nil, nil, nil, testLogger())

	var validationErr *ValidationError
	_, err := svc.SubmitResult(context.Background(), 1, nil, true, false)
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for empty score, got %v", err)
	}
}

func TestSubmitResultRejectsTiedSet(t *testing.T) {
	svc := NewStandingsService(nil, nil, nil, nil, nil, nil, testLogger())

	_, err := svc.SubmitResult(context.Background(), 1, []models.SetScore{{Home: 6, Away: 6}}, true, true)
	if !errors.Is(err, standings.ErrTiedSet) {
		t.Fatalf("expected ErrTiedSet, got %v", err)
	}
}

func TestSubmitResultRejectsNegativeGames(t *testing.T) {
	svc := NewStandingsService(nil, nil, nil, nil, nil, nil, testLogger())

	var validationErr *ValidationError
	_, err := svc.SubmitResult(context.Background(), 1, []models.SetScore{{Home: -1, Away: 6}}, true, true)
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for negative games, got %v", err)
	}
}
