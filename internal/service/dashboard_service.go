package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/trailhq/trail-api/internal/dto"
	"github.com/trailhq/trail-api/internal/models"
	appErrors "github.com/trailhq/trail-api/pkg/errors"
)

const seriesDays = 7

type rosterLister interface {
	List(ctx context.Context) ([]models.Student, error)
}

type eventLister interface {
	ListAll(ctx context.Context) ([]models.AttendanceEvent, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL        time.Duration
	LeaderboardSize int
}

// DashboardService computes the attendance overview for a selected date.
type DashboardService struct {
	students rosterLister
	events   eventLister
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students rosterLister
	Events   eventLister
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students: params.Students,
		events:   params.Events,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Overview returns the dashboard payload for the selected date and indicates
// cache utilisation. A zero date defaults to the current UTC date.
func (s *DashboardService) Overview(ctx context.Context, selectedDate time.Time) (*dto.OverviewResponse, bool, error) {
	if selectedDate.IsZero() {
		selectedDate = s.now().UTC()
	}
	selectedDate = selectedDate.UTC().Truncate(24 * time.Hour)

	cacheKey := fmt.Sprintf("dash:overview:%s", selectedDate.Format(models.EventDateLayout))
	if cached, hit, err := s.tryCache(ctx, cacheKey); err != nil {
		return nil, false, err
	} else if hit {
		return cached, true, nil
	}

	students, err := s.students.List(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load roster")
	}
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load attendance events")
	}

	overview, err := BuildOverview(students, events, selectedDate, s.cfg.LeaderboardSize)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, overview)
	return overview, false, nil
}

func (s *DashboardService) tryCache(ctx context.Context, key string) (*dto.OverviewResponse, bool, error) {
	if s.cache == nil {
		return nil, false, nil
	}
	var cached dto.OverviewResponse
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		return nil, false, err
	}
	if hit {
		return &cached, true, nil
	}
	return nil, false, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil && s.logger != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// BuildOverview derives every reporting view from the roster and event log in
// one pass. It is pure: identical inputs always produce identical output. A
// single event whose timestamp fails every accepted layout aborts the whole
// computation.
func BuildOverview(students []models.Student, events []models.AttendanceEvent, selectedDate time.Time, leaderboardSize int) (*dto.OverviewResponse, error) {
	if leaderboardSize <= 0 {
		leaderboardSize = 5
	}
	selected := selectedDate.UTC().Format(models.EventDateLayout)

	attendedDates := make(map[string]map[string]struct{})
	attendeesByDate := make(map[string]map[string]struct{})
	presentToday := make(map[string]struct{})

	for _, event := range events {
		date, err := EventDate(event.Timestamp)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrMalformedTimestamp.Code, appErrors.ErrMalformedTimestamp.Status,
				fmt.Sprintf("event %s has an unparseable timestamp", event.ID))
		}

		dates := attendedDates[event.StudentID]
		if dates == nil {
			dates = make(map[string]struct{})
			attendedDates[event.StudentID] = dates
		}
		dates[date] = struct{}{}

		attendees := attendeesByDate[date]
		if attendees == nil {
			attendees = make(map[string]struct{})
			attendeesByDate[date] = attendees
		}
		attendees[event.StudentID] = struct{}{}

		if date == selected {
			presentToday[event.StudentID] = struct{}{}
		}
	}

	totalDates := len(attendeesByDate)

	rates := make([]dto.StudentAttendanceRate, 0, len(students))
	for _, student := range students {
		attended := len(attendedDates[student.ID])
		percent := roundPercent(float64(attended) / float64(maxInt(1, totalDates)) * 100)
		rates = append(rates, dto.StudentAttendanceRate{
			Name:         student.FullName,
			RFID:         student.RFID,
			Percent:      percent,
			AttendedDays: attended,
		})
	}

	most := topByAttendance(rates, leaderboardSize, true)
	least := topByAttendance(rates, leaderboardSize, false)

	absent := make([]dto.AbsentStudent, 0)
	for _, student := range students {
		if _, ok := presentToday[student.ID]; !ok {
			absent = append(absent, dto.AbsentStudent{ID: student.ID, Name: student.FullName, RFID: student.RFID})
		}
	}

	daily := make([]dto.DailyAttendanceCount, 0, seriesDays)
	for i := seriesDays - 1; i >= 0; i-- {
		date := selectedDate.UTC().AddDate(0, 0, -i).Format(models.EventDateLayout)
		daily = append(daily, dto.DailyAttendanceCount{
			Date:  date,
			Count: len(attendeesByDate[date]),
		})
	}

	return &dto.OverviewResponse{
		SelectedDate:    selected,
		TotalStudents:   len(students),
		TotalEvents:     len(events),
		PresentToday:    len(presentToday),
		AbsentStudents:  absent,
		AttendanceRates: rates,
		MostAttendance:  most,
		LeastAttendance: least,
		DailyCounts:     daily,
		Summary: dto.PresenceSummary{
			Present: len(presentToday),
			// Can go negative when events reference students missing from the
			// roster. Left unclamped so inconsistent data stays visible.
			Absent: len(students) - len(presentToday),
		},
	}, nil
}

// EventDate extracts the calendar date from a stored event timestamp. Rows
// written by this service use EventTimeLayout; legacy writers produced
// microsecond precision or bare dates, so all three layouts are accepted.
func EventDate(raw string) (string, error) {
	if t, err := time.Parse(models.EventTimeLayout, raw); err == nil {
		return t.Format(models.EventDateLayout), nil
	}
	if t, err := time.Parse(models.EventTimeMicroLayout, raw); err == nil {
		return t.Format(models.EventDateLayout), nil
	}
	if t, err := time.Parse(models.EventDateLayout, raw); err == nil {
		return t.Format(models.EventDateLayout), nil
	}
	return "", fmt.Errorf("unsupported timestamp %q", raw)
}

func topByAttendance(rates []dto.StudentAttendanceRate, size int, descending bool) []dto.StudentAttendanceRate {
	ranked := make([]dto.StudentAttendanceRate, len(rates))
	copy(ranked, rates)
	// Stable sort keeps roster order between equal attendance counts.
	sort.SliceStable(ranked, func(i, j int) bool {
		if descending {
			return ranked[i].AttendedDays > ranked[j].AttendedDays
		}
		return ranked[i].AttendedDays < ranked[j].AttendedDays
	})
	if len(ranked) > size {
		ranked = ranked[:size]
	}
	return ranked
}

func roundPercent(value float64) float64 {
	return math.Round(value*100) / 100
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
