package matsubo

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day.
//
// It is stored as TEXT in the form 2006-01-02 so lexical and chronological
// order agree.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns a normalized date, e.g. Feb 30 becomes Mar 1 or 2.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses the 2006-01-02 form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("error parsing date: %w", err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d Date) Before(o Date) bool {
	return d.compare(o) < 0
}

func (d Date) After(o Date) bool {
	return d.compare(o) > 0
}

func (d Date) compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return d.Year - o.Year
	case d.Month != o.Month:
		return int(d.Month) - int(o.Month)
	default:
		return d.Day - o.Day
	}
}

func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

// DaysInMonth returns the number of days in d's month.
func (d Date) DaysInMonth() int {
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.In(time.UTC).Format(dateLayout)
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	// Tolerate timestamps written by other tools.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

const clockLayout = "15:04 -0700"

// Clock is a time of day in a fixed zone offset.
type Clock struct {
	Hour   int
	Minute int
	// Offset is the zone offset in seconds east of UTC.
	Offset int
}

// ClockOf keeps the time of day and zone offset of t.
func ClockOf(t time.Time) Clock {
	_, offset := t.Zone()
	return Clock{Hour: t.Hour(), Minute: t.Minute(), Offset: offset}
}

func (c Clock) time() time.Time {
	return time.Date(2000, 1, 1, c.Hour, c.Minute, 0, 0, time.FixedZone("", c.Offset))
}

// String renders the clock as 15:04.
func (c Clock) String() string {
	return c.time().Format("15:04")
}

// On places the clock on the given date.
func (c Clock) On(d Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, time.FixedZone("", c.Offset))
}

func (c Clock) Value() (driver.Value, error) {
	return c.time().Format(clockLayout), nil
}

func (c *Clock) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}

	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return fmt.Errorf("error parsing clock: %w", err)
	}
	*c = ClockOf(t)
	return nil
}

var weekdayKanji = map[time.Weekday]string{
	time.Monday:    "月",
	time.Tuesday:   "火",
	time.Wednesday: "水",
	time.Thursday:  "木",
	time.Friday:    "金",
	time.Saturday:  "土",
	time.Sunday:    "日",
}

// FormatDate renders a date like "Mar 1st (金), 2024".
func FormatDate(d Date) string {
	return fmt.Sprintf("%s %d%s (%s), %d",
		d.Month.String()[:3], d.Day, daySuffix(d.Day), weekdayKanji[d.Weekday()], d.Year)
}

func daySuffix(d int) string {
	if d >= 11 && d <= 13 {
		return "th"
	}
	switch d % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
