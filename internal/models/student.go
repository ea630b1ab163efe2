package models

import "time"

// UnknownLabel is rendered wherever an attendance event references a student
// that no longer exists in the roster.
const UnknownLabel = "Unknown"

// Student is a roster entry owned by the external provisioning process.
// This service only reads students; it never creates or mutates them.
type Student struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	RFID      string    `db:"rfid" json:"rfid"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
