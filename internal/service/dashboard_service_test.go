package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailhq/trail-api/internal/models"
	appErrors "github.com/trailhq/trail-api/pkg/errors"
)

type fakeRoster struct {
	students []models.Student
	err      error
}

func (f *fakeRoster) List(context.Context) ([]models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.students, nil
}

type fakeEventLog struct {
	events []models.AttendanceEvent
	err    error
}

func (f *fakeEventLog) ListAll(context.Context) ([]models.AttendanceEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.store = nil
	return nil
}

func TestBuildOverviewComputesRatesAndSeries(t *testing.T) {
	students := []models.Student{
		{ID: "s1", FullName: "Ann", RFID: "A1"},
		{ID: "s2", FullName: "Bob", RFID: "B2"},
	}
	events := []models.AttendanceEvent{
		{ID: "e1", StudentID: "s1", Timestamp: "2024-03-01T08:00:00"},
		{ID: "e2", StudentID: "s1", Timestamp: "2024-03-02T08:05:00"},
		{ID: "e3", StudentID: "s2", Timestamp: "2024-03-02T08:10:00"},
		// Repeat scan on the same day must not inflate counts.
		{ID: "e4", StudentID: "s2", Timestamp: "2024-03-02T09:00:00"},
	}
	selected := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	result, err := BuildOverview(students, events, selected, 5)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-02", result.SelectedDate)
	assert.Equal(t, 2, result.TotalStudents)
	assert.Equal(t, 4, result.TotalEvents)
	assert.Equal(t, 2, result.PresentToday)
	assert.Empty(t, result.AbsentStudents)

	require.Len(t, result.AttendanceRates, 2)
	assert.Equal(t, "Ann", result.AttendanceRates[0].Name)
	assert.InDelta(t, 100.0, result.AttendanceRates[0].Percent, 0.001)
	assert.Equal(t, 2, result.AttendanceRates[0].AttendedDays)
	assert.Equal(t, "Bob", result.AttendanceRates[1].Name)
	assert.InDelta(t, 50.0, result.AttendanceRates[1].Percent, 0.001)
	assert.Equal(t, 1, result.AttendanceRates[1].AttendedDays)

	require.Len(t, result.DailyCounts, 7)
	assert.Equal(t, "2024-02-25", result.DailyCounts[0].Date)
	assert.Equal(t, "2024-03-02", result.DailyCounts[6].Date)
	assert.Equal(t, 2, result.DailyCounts[6].Count)
	assert.Equal(t, 1, result.DailyCounts[5].Count)
	for _, day := range result.DailyCounts[:5] {
		assert.Equal(t, 0, day.Count)
	}

	assert.Equal(t, 2, result.Summary.Present)
	assert.Equal(t, 0, result.Summary.Absent)
}

func TestBuildOverviewEmptyLog(t *testing.T) {
	students := []models.Student{
		{ID: "s1", FullName: "Ann", RFID: "A1"},
	}
	selected := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	result, err := BuildOverview(students, nil, selected, 5)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalEvents)
	assert.Equal(t, 0, result.PresentToday)
	require.Len(t, result.AbsentStudents, 1)
	assert.Equal(t, "s1", result.AbsentStudents[0].ID)
	require.Len(t, result.AttendanceRates, 1)
	assert.Zero(t, result.AttendanceRates[0].Percent)
	require.Len(t, result.DailyCounts, 7)
	for _, day := range result.DailyCounts {
		assert.Equal(t, 0, day.Count)
	}
}

func TestBuildOverviewIsDeterministic(t *testing.T) {
	students := []models.Student{
		{ID: "s1", FullName: "Ann", RFID: "A1"},
		{ID: "s2", FullName: "Bob", RFID: "B2"},
		{ID: "s3", FullName: "Cleo", RFID: "C3"},
	}
	events := []models.AttendanceEvent{
		{ID: "e1", StudentID: "s1", Timestamp: "2024-03-01T08:00:00"},
		{ID: "e2", StudentID: "s2", Timestamp: "2024-03-01T08:01:00"},
		{ID: "e3", StudentID: "s3", Timestamp: "2024-03-02T08:02:00"},
	}
	selected := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	first, err := BuildOverview(students, events, selected, 5)
	require.NoError(t, err)
	second, err := BuildOverview(students, events, selected, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildOverviewAcceptsLegacyTimestampLayouts(t *testing.T) {
	students := []models.Student{{ID: "s1", FullName: "Ann", RFID: "A1"}}
	events := []models.AttendanceEvent{
		{ID: "e1", StudentID: "s1", Timestamp: "2024-03-01T08:00:00.123456"},
		{ID: "e2", StudentID: "s1", Timestamp: "2024-03-02"},
	}
	selected := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	result, err := BuildOverview(students, events, selected, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PresentToday)
	assert.Equal(t, 2, result.AttendanceRates[0].AttendedDays)
}

func TestBuildOverviewAbortsOnMalformedTimestamp(t *testing.T) {
	students := []models.Student{{ID: "s1", FullName: "Ann", RFID: "A1"}}
	events := []models.AttendanceEvent{
		{ID: "e1", StudentID: "s1", Timestamp: "2024-03-01T08:00:00"},
		{ID: "e2", StudentID: "s1", Timestamp: "yesterday"},
	}

	_, err := BuildOverview(students, events, time.Now().UTC(), 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedTimestamp.Code, appErrors.FromError(err).Code)
}

func TestBuildOverviewUnrosteredEventsLeaveSummaryUnclamped(t *testing.T) {
	events := []models.AttendanceEvent{
		{ID: "e1", StudentID: "ghost", Timestamp: "2024-03-02T08:00:00"},
	}
	selected := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	result, err := BuildOverview(nil, events, selected, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Present)
	assert.Equal(t, -1, result.Summary.Absent)
}

func TestBuildOverviewLeaderboardTruncation(t *testing.T) {
	students := make([]models.Student, 0, 7)
	events := make([]models.AttendanceEvent, 0)
	names := []string{"Ann", "Bob", "Cleo", "Dan", "Eve", "Finn", "Gus"}
	for i, name := range names {
		id := string(rune('a' + i))
		students = append(students, models.Student{ID: id, FullName: name, RFID: id})
		// Student i attends i distinct days.
		for d := 0; d < i; d++ {
			events = append(events, models.AttendanceEvent{
				ID:        name + "-" + string(rune('0'+d)),
				StudentID: id,
				Timestamp: time.Date(2024, 3, 1+d, 8, 0, 0, 0, time.UTC).Format(models.EventTimeLayout),
			})
		}
	}
	selected := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	result, err := BuildOverview(students, events, selected, 5)
	require.NoError(t, err)
	require.Len(t, result.MostAttendance, 5)
	require.Len(t, result.LeastAttendance, 5)
	assert.Equal(t, "Gus", result.MostAttendance[0].Name)
	assert.Equal(t, "Ann", result.LeastAttendance[0].Name)
}

func TestDashboardServiceOverviewCachesResult(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)

	svc := NewDashboardService(DashboardServiceParams{
		Students: &fakeRoster{students: []models.Student{{ID: "s1", FullName: "Ann", RFID: "A1"}}},
		Events: &fakeEventLog{events: []models.AttendanceEvent{
			{ID: "e1", StudentID: "s1", Timestamp: "2024-03-02T08:00:00"},
		}},
		Cache:  cacheSvc,
		Logger: zap.NewNop(),
	})

	selected := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	result, cacheHit, err := svc.Overview(ctx, selected)
	require.NoError(t, err)
	assert.False(t, cacheHit)

	cached, cacheHit2, err := svc.Overview(ctx, selected)
	require.NoError(t, err)
	assert.True(t, cacheHit2)
	assert.Equal(t, result, cached)
}

func TestDashboardServiceOverviewDefaultsToToday(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Students: &fakeRoster{},
		Events:   &fakeEventLog{},
		Logger:   zap.NewNop(),
	})
	now := time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	result, _, err := svc.Overview(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", result.SelectedDate)
}

func TestDashboardServiceOverviewWrapsStoreFailure(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Students: &fakeRoster{err: assert.AnError},
		Events:   &fakeEventLog{},
		Logger:   zap.NewNop(),
	})

	_, _, err := svc.Overview(context.Background(), time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstreamUnavailable.Code, appErrors.FromError(err).Code)
}
