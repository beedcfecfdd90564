package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Timestamp is a nullable point in time stored as RFC 3339 text.
//
// Rows written by other tools may carry a native timestamp, ISO-like text with
// or without a time part, or day-month-year text. All of them scan; anything
// else scans as an absent value instead of failing the query.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006",
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC(), Valid: true}
}

// ParseTimestamp accepts any of the stored text encodings. Values without a
// zone are read as UTC.
func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return NewTimestamp(t), true
		}
	}
	return Timestamp{}, false
}

func (t *Timestamp) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*t = Timestamp{}
	case time.Time:
		*t = NewTimestamp(v)
	case string:
		*t, _ = ParseTimestamp(v)
	case []byte:
		*t, _ = ParseTimestamp(string(v))
	default:
		return fmt.Errorf("models: cannot scan %T into Timestamp", value)
	}
	return nil
}

func (t Timestamp) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time.UTC().Format(time.RFC3339Nano), nil
}

func (Timestamp) GormDataType() string {
	return "text"
}

// Date renders the calendar date, or an empty string when absent.
func (t Timestamp) Date() string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.DateOnly)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Time.Format(time.RFC3339) + `"`), nil
}
