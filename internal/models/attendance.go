package models

import "time"

// Timestamp layouts accepted for stored attendance events. Rows written by
// this service use EventTimeLayout; older rows may carry microseconds or a
// bare date, so all three must parse.
const (
	EventTimeLayout      = "2006-01-02T15:04:05"
	EventTimeMicroLayout = "2006-01-02T15:04:05.999999"
	EventDateLayout      = "2006-01-02"
)

// AttendanceEvent is one logged presence record. Events are append-only:
// never updated or deleted by this service. StudentID is not enforced as a
// foreign key, so roster deletions can orphan events.
type AttendanceEvent struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Timestamp string    `db:"ts" json:"timestamp"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ScanResult identifies the student resolved by a successful RFID scan.
type ScanResult struct {
	StudentID   string `json:"id"`
	StudentName string `json:"name"`
}

// ScanRecord is a recent-feed row joining an event to its student, with
// Unknown fallbacks for orphaned events.
type ScanRecord struct {
	StudentName string `json:"name"`
	RFID        string `json:"rfid"`
	Timestamp   string `json:"timestamp"`
}
