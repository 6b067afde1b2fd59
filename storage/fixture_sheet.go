package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/Dosada05/league-system/models"
)

// FixtureSheet рендерит календарь сезона в CSV и кладёт его в объектное
// хранилище. Архив нужен для аудита: сгенерированный календарь фиксируется
// в том виде, в каком он был сохранён.
type FixtureSheet struct {
	uploader FileUploader
}

func NewFixtureSheet(uploader FileUploader) *FixtureSheet {
	return &FixtureSheet{uploader: uploader}
}

// Archive загружает снимок календаря под ключом
// seasons/<id>/fixtures-<timestamp>.csv и возвращает результат загрузки.
func (f *FixtureSheet) Archive(ctx context.Context, seasonID int, matches []*models.Match) (*UploadResult, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"matchday", "match_number", "home_team_id", "away_team_id", "start_time", "court", "status"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write fixture sheet header: %w", err)
	}
	for _, m := range matches {
		start := ""
		if m.StartTime != nil {
			start = m.StartTime.Format(time.RFC3339)
		}
		court := ""
		if m.Court != nil {
			court = *m.Court
		}
		record := []string{
			strconv.Itoa(m.Matchday),
			strconv.Itoa(m.MatchNumber),
			strconv.Itoa(m.HomeTeamID),
			strconv.Itoa(m.AwayTeamID),
			start,
			court,
			string(m.Status),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write fixture sheet row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush fixture sheet: %w", err)
	}

	key := fmt.Sprintf("seasons/%d/fixtures-%d.csv", seasonID, time.Now().Unix())
	return f.uploader.Upload(ctx, key, "text/csv", &buf)
}
