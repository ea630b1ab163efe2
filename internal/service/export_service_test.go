package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailhq/trail-api/internal/models"
	appErrors "github.com/trailhq/trail-api/pkg/errors"
)

func TestExportServiceAttendanceCSV(t *testing.T) {
	svc := NewExportService(
		&fakeRoster{students: []models.Student{
			{ID: "s1", FullName: "Ann", RFID: "A1"},
		}},
		&fakeEventLog{events: []models.AttendanceEvent{
			{ID: "e1", StudentID: "s1", Timestamp: "2024-03-01T08:00:00"},
			{ID: "e2", StudentID: "ghost", Timestamp: "2024-03-02T08:00:00"},
		}},
		zap.NewNop(), nil, nil,
	)

	payload, err := svc.AttendanceCSV(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student Name,RFID,Timestamp", lines[0])
	assert.Equal(t, "Ann,A1,2024-03-01T08:00:00", lines[1])
	assert.Equal(t, "Unknown,Unknown,2024-03-02T08:00:00", lines[2])
}

func TestExportServiceAttendanceCSVEmptyLog(t *testing.T) {
	svc := NewExportService(&fakeRoster{}, &fakeEventLog{}, zap.NewNop(), nil, nil)

	payload, err := svc.AttendanceCSV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Student Name,RFID,Timestamp", strings.TrimSpace(string(payload)))
}

func TestExportServiceAttendancePDFRenders(t *testing.T) {
	svc := NewExportService(
		&fakeRoster{students: []models.Student{{ID: "s1", FullName: "Ann", RFID: "A1"}}},
		&fakeEventLog{events: []models.AttendanceEvent{
			{ID: "e1", StudentID: "s1", Timestamp: "2024-03-01T08:00:00"},
		}},
		zap.NewNop(), nil, nil,
	)

	payload, err := svc.AttendancePDF(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportServiceStoreFailure(t *testing.T) {
	svc := NewExportService(&fakeRoster{}, &fakeEventLog{err: assert.AnError}, zap.NewNop(), nil, nil)

	_, err := svc.AttendanceCSV(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstreamUnavailable.Code, appErrors.FromError(err).Code)
}
