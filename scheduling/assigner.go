package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/league-system/fixtures"
)

// Constraints описывает правила размещения матчей по кортам и дням.
type Constraints struct {
	// PreferredWeekdays — игровые дни недели. Пусто = любой день.
	PreferredWeekdays []time.Weekday
	// DayWindowStart/End — рабочее окно внутри дня, смещение от полуночи.
	DayWindowStart time.Duration
	DayWindowEnd   time.Duration
	// SlotInterval — шаг перебора слотов внутри окна.
	SlotInterval time.Duration
	// MatchDuration — длительность бронирования корта.
	MatchDuration time.Duration
	Courts        []string
	// MaxMatchesPerCourtPerDay ограничивает загрузку корта. 0 = без лимита.
	MaxMatchesPerCourtPerDay int
	// MinRestDays — минимум дней между двумя матчами одной команды.
	MinRestDays int
	// BlackoutDates — даты без матчей (праздники, закрытие клуба).
	BlackoutDates []time.Time
	// MatchdayIntervalDays — плановый шаг между турами от старта сезона.
	MatchdayIntervalDays int
	// SearchHorizonDays — сколько дней вперёд искать слот для одного матча.
	SearchHorizonDays int
}

func (c Constraints) withDefaults() Constraints {
	if c.DayWindowStart == 0 && c.DayWindowEnd == 0 {
		c.DayWindowStart = 18 * time.Hour
		c.DayWindowEnd = 23 * time.Hour
	}
	if c.SlotInterval <= 0 {
		c.SlotInterval = 90 * time.Minute
	}
	if c.MatchDuration <= 0 {
		c.MatchDuration = c.SlotInterval
	}
	if c.MatchdayIntervalDays <= 0 {
		c.MatchdayIntervalDays = 7
	}
	if c.SearchHorizonDays <= 0 {
		c.SearchHorizonDays = 30
	}
	return c
}

// Booking — занятый интервал корта. Передаётся снаружи для уже
// существующих броней и накапливается по ходу назначения.
type Booking struct {
	Court string
	Start time.Time
	End   time.Time
}

// AvailabilityFunc — внешний предикат доступности корта (каталог площадок
// ведёт CRUD-слой). nil = корт всегда доступен.
type AvailabilityFunc func(court string, start, end time.Time) bool

// Assignment — матч с назначенным слотом.
type Assignment struct {
	Skeleton fixtures.MatchSkeleton
	Start    time.Time
	Court    string
}

// Failure — матч, для которого слот не найден. Не фатально для пакета:
// остальные матчи назначаются независимо.
type Failure struct {
	Skeleton fixtures.MatchSkeleton
	Reason   string
}

type Assigner struct {
	constraints Constraints
}

func NewAssigner(c Constraints) *Assigner {
	return &Assigner{constraints: c.withDefaults()}
}

func (a *Assigner) Constraints() Constraints {
	return a.constraints
}

// Assign greedily places every skeleton on the first free (day, slot, court),
// in (matchday, match_number) order. First fit wins; no backtracking.
func (a *Assigner) Assign(seasonStart time.Time, skeletons []fixtures.MatchSkeleton, existing []Booking, available AvailabilityFunc) ([]Assignment, []Failure) {
	ordered := make([]fixtures.MatchSkeleton, len(skeletons))
	copy(ordered, skeletons)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Matchday != ordered[j].Matchday {
			return ordered[i].Matchday < ordered[j].Matchday
		}
		return ordered[i].MatchNumber < ordered[j].MatchNumber
	})

	state := newDayState(existing)
	assignments := make([]Assignment, 0, len(ordered))
	var failures []Failure

	for _, sk := range ordered {
		base := dateOnly(seasonStart).AddDate(0, 0, (sk.Matchday-1)*a.constraints.MatchdayIntervalDays)
		slot, court, ok := a.findSlot(base, sk, state, available)
		if !ok {
			failures = append(failures, Failure{
				Skeleton: sk,
				Reason:   fmt.Sprintf("no free slot within %d days of %s", a.constraints.SearchHorizonDays, base.Format("2006-01-02")),
			})
			continue
		}
		state.book(court, slot, slot.Add(a.constraints.MatchDuration))
		state.recordTeams(sk.HomeTeamID, sk.AwayTeamID, slot)
		assignments = append(assignments, Assignment{Skeleton: sk, Start: slot, Court: court})
	}

	return assignments, failures
}

// FindSlotFrom ищет первый свободный слот для одного матча, начиная с
// base. Используется при автоматическом переносе.
func (a *Assigner) FindSlotFrom(base time.Time, sk fixtures.MatchSkeleton, existing []Booking, available AvailabilityFunc) (time.Time, string, bool) {
	return a.findSlot(dateOnly(base), sk, newDayState(existing), available)
}

func (a *Assigner) findSlot(base time.Time, sk fixtures.MatchSkeleton, state *dayState, available AvailabilityFunc) (time.Time, string, bool) {
	c := a.constraints
	for offset := 0; offset < c.SearchHorizonDays; offset++ {
		day := base.AddDate(0, 0, offset)
		if !a.playableDay(day) {
			continue
		}
		if !state.teamsRested(sk.HomeTeamID, sk.AwayTeamID, day, c.MinRestDays) {
			continue
		}
		for at := c.DayWindowStart; at+c.MatchDuration <= c.DayWindowEnd; at += c.SlotInterval {
			start := day.Add(at)
			end := start.Add(c.MatchDuration)
			for _, court := range c.Courts {
				if c.MaxMatchesPerCourtPerDay > 0 && state.courtLoad(court, day) >= c.MaxMatchesPerCourtPerDay {
					continue
				}
				if state.overlaps(court, start, end) {
					continue
				}
				if available != nil && !available(court, start, end) {
					continue
				}
				return start, court, true
			}
		}
	}
	return time.Time{}, "", false
}

func (a *Assigner) playableDay(day time.Time) bool {
	c := a.constraints
	if len(c.PreferredWeekdays) > 0 {
		ok := false
		for _, wd := range c.PreferredWeekdays {
			if day.Weekday() == wd {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, blackout := range c.BlackoutDates {
		if sameDate(day, blackout) {
			return false
		}
	}
	return true
}

// CheckSlot validates a single concrete slot against existing bookings and
// the constraints. Используется при ручном переносе матча.
func (a *Assigner) CheckSlot(court string, start time.Time, existing []Booking, available AvailabilityFunc) error {
	c := a.constraints
	if !a.playableDay(start) {
		return fmt.Errorf("%s is not a playable day", start.Format("2006-01-02"))
	}
	end := start.Add(c.MatchDuration)
	for _, b := range existing {
		if b.Court == court && b.Start.Before(end) && start.Before(b.End) {
			return fmt.Errorf("court %s already booked from %s to %s", court, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339))
		}
	}
	if available != nil && !available(court, start, end) {
		return fmt.Errorf("court %s is not available at %s", court, start.Format(time.RFC3339))
	}
	return nil
}

// dayState отслеживает брони и последние даты матчей команд по ходу
// жадного назначения.
type dayState struct {
	bookings map[string][]Booking // court -> intervals
	lastPlay map[int]time.Time    // team -> date of most recent match
}

func newDayState(existing []Booking) *dayState {
	s := &dayState{
		bookings: make(map[string][]Booking),
		lastPlay: make(map[int]time.Time),
	}
	for _, b := range existing {
		s.bookings[b.Court] = append(s.bookings[b.Court], b)
	}
	return s
}

func (s *dayState) book(court string, start, end time.Time) {
	s.bookings[court] = append(s.bookings[court], Booking{Court: court, Start: start, End: end})
}

func (s *dayState) recordTeams(home, away int, start time.Time) {
	day := dateOnly(start)
	if day.After(s.lastPlay[home]) {
		s.lastPlay[home] = day
	}
	if day.After(s.lastPlay[away]) {
		s.lastPlay[away] = day
	}
}

func (s *dayState) overlaps(court string, start, end time.Time) bool {
	for _, b := range s.bookings[court] {
		if b.Start.Before(end) && start.Before(b.End) {
			return true
		}
	}
	return false
}

func (s *dayState) courtLoad(court string, day time.Time) int {
	count := 0
	for _, b := range s.bookings[court] {
		if sameDate(b.Start, day) {
			count++
		}
	}
	return count
}

func (s *dayState) teamsRested(home, away int, day time.Time, minRestDays int) bool {
	if minRestDays <= 0 {
		return true
	}
	for _, team := range []int{home, away} {
		last, ok := s.lastPlay[team]
		if !ok {
			continue
		}
		if int(dateOnly(day).Sub(last).Hours()/24) < minRestDays {
			return false
		}
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
