package domain

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

const (
	DefaultOpenHour  = 8
	DefaultCloseHour = 20

	DateLayout = "2006-01-02"
)

// OpeningHours is one weekday row of the business's weekly schedule.
// Weekday uses ISO numbering: 1 = Monday ... 7 = Sunday.
type OpeningHours struct {
	bun.BaseModel `bun:"table:opening_hours"`

	BusinessID  string `bun:"business_id,pk"`
	Weekday     int16  `bun:"weekday,pk"`
	OpenMinute  int    `bun:"open_minute,notnull"`
	CloseMinute int    `bun:"close_minute,notnull"`
	Closed      bool   `bun:"closed,notnull"`
}

// WeeklyHours resolves the working window for any calendar day. Days without
// a configured row fall back to [DefaultOpen, DefaultClose).
type WeeklyHours struct {
	Days         map[int16]OpeningHours
	DefaultOpen  time.Duration
	DefaultClose time.Duration
}

func DefaultWeeklyHours() WeeklyHours {
	return WeeklyHours{
		DefaultOpen:  DefaultOpenHour * time.Hour,
		DefaultClose: DefaultCloseHour * time.Hour,
	}
}

func NewWeeklyHours(rows []OpeningHours, defaultOpen, defaultClose time.Duration) (WeeklyHours, error) {
	if defaultClose <= defaultOpen {
		return WeeklyHours{}, errors.New("default close must be after default open")
	}
	days := make(map[int16]OpeningHours, len(rows))
	for _, r := range rows {
		if r.Weekday < 1 || r.Weekday > 7 {
			return WeeklyHours{}, errors.New("invalid weekday")
		}
		if !r.Closed && (r.OpenMinute < 0 || r.CloseMinute > 24*60 || r.CloseMinute <= r.OpenMinute) {
			return WeeklyHours{}, errors.New("invalid opening hours")
		}
		days[r.Weekday] = r
	}
	return WeeklyHours{Days: days, DefaultOpen: defaultOpen, DefaultClose: defaultClose}, nil
}

// ISOWeekday maps time.Weekday onto 1..7 with Sunday as 7.
func ISOWeekday(d time.Weekday) int16 {
	if d == time.Sunday {
		return 7
	}
	return int16(d)
}

// WindowFor returns the working window of the calendar day containing date,
// interpreted in loc. ok is false when the business is closed that day.
func (w WeeklyHours) WindowFor(date time.Time, loc *time.Location) (Interval, bool) {
	if loc == nil {
		loc = time.UTC
	}
	local := date.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	openAt, closeAt := w.DefaultOpen, w.DefaultClose
	if row, ok := w.Days[ISOWeekday(midnight.Weekday())]; ok {
		if row.Closed {
			return Interval{}, false
		}
		openAt = time.Duration(row.OpenMinute) * time.Minute
		closeAt = time.Duration(row.CloseMinute) * time.Minute
	}
	if closeAt <= openAt {
		return Interval{}, false
	}

	// Clock arithmetic via time.Date keeps DST days correct.
	start := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), 0, int(openAt/time.Minute), 0, 0, loc)
	end := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), 0, int(closeAt/time.Minute), 0, 0, loc)
	return Interval{Start: start, End: end}, true
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// DayBounds returns [midnight, next midnight) of the day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) Interval {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}
