package util

import (
	"database/sql"
	"time"
)

// TimeLayout is the fixed-width UTC layout used for stored timestamps.
// Lexical order of formatted values matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime formats t in UTC with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout or RFC3339 timestamp.
// Returns zero time if parsing fails.
func ParseTime(s string) time.Time {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// NullStringPtr converts a *string to sql.NullString.
// Nil pointers are treated as invalid (null).
func NullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// NullTimePtr converts a *time.Time to a nullable TimeLayout string.
func NullTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// NullStringToTimePtr parses a nullable timestamp column.
// Invalid values are returned as nil.
func NullStringToTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := ParseTime(ns.String)
	return &t
}

// BoolToInt64 converts a bool to int64 (true=1, false=0).
// This is useful for SQLite which doesn't have a native boolean type.
func BoolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
