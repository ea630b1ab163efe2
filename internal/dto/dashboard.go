package dto

// StudentAttendanceRate is one per-student analytics row.
type StudentAttendanceRate struct {
	Name         string  `json:"name"`
	RFID         string  `json:"rfid"`
	Percent      float64 `json:"percent"`
	AttendedDays int     `json:"attended"`
}

// AbsentStudent identifies a roster entry with no event on the selected date.
type AbsentStudent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	RFID string `json:"rfid"`
}

// DailyAttendanceCount is one point of the rolling daily series.
type DailyAttendanceCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PresenceSummary feeds the present/absent pie chart. Absent is not clamped:
// events referencing unknown students can push it negative.
type PresenceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// OverviewResponse is the full dashboard payload for a selected date.
type OverviewResponse struct {
	SelectedDate    string                  `json:"selected_date"`
	TotalStudents   int                     `json:"total_students"`
	TotalEvents     int                     `json:"total_events"`
	PresentToday    int                     `json:"present_today"`
	AbsentStudents  []AbsentStudent         `json:"absent_students"`
	AttendanceRates []StudentAttendanceRate `json:"attendance_rates"`
	MostAttendance  []StudentAttendanceRate `json:"most_attendance"`
	LeastAttendance []StudentAttendanceRate `json:"least_attendance"`
	DailyCounts     []DailyAttendanceCount  `json:"attendance_per_day"`
	Summary         PresenceSummary         `json:"summary"`
}
