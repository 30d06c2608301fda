// Package dates turns the loose date and time text found on event listings
// into calendar dates, clock times and an optional fuzzy label.
//
// Listings write things like "Mar 5", "Mar 5 ~ Mar 10", "Early Mar" or
// "Mid Mar ~ End Mar". Qualifiers snap to fixed days of the month so the
// inferred window is wider rather than narrower.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/jdholdren/matsubo/internal/matsubo"
)

const (
	// RangeSeparator splits a date range.
	RangeSeparator = "~"
)

// Separators between a start and end time, the en dash being what listings use.
var timeSeparators = []string{"–", "—", " - ", "~"}

// Qualifiers that make a date fuzzy. Anything else that isn't a date
// component is noise.
const (
	QualifierEarly = "Early"
	QualifierMid   = "Mid"
	QualifierEnd   = "End"
	QualifierLate  = "Late"
)

// ParseError names the text that could not be understood.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing %q: %s", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Normalizer parses listing text relative to the current year in Location.
type Normalizer struct {
	Location *time.Location
	Now      func() time.Time
}

// New returns a Normalizer using the wall clock.
func New(loc *time.Location) Normalizer {
	return Normalizer{Location: loc, Now: time.Now}
}

func (n Normalizer) now() time.Time {
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	if n.Now == nil {
		return time.Now().In(loc)
	}
	return n.Now().In(loc)
}

// DateRange parses a single date expression or an "A ~ B" range.
//
// The fuzzy label is the input text verbatim when a range carries a qualifier
// on either side, and empty otherwise. A lone qualified date gets no label
// but spans the days its qualifier covers. Start and end are always set.
func (n Normalizer) DateRange(text string) (start, end matsubo.Date, fuzzy string, err error) {
	parts := strings.SplitN(text, RangeSeparator, 2)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	year := n.now().Year()
	first, err := parseDate(parts[0], year)
	if err != nil && len(parts) == 2 {
		// Some listings only print the month or year on the closing date,
		// e.g. "Early ~ Mid Mar". Borrow it once.
		first, err = parseDate(parts[0]+" "+salvageToken(parts[1]), year)
	}
	if err != nil {
		return matsubo.Date{}, matsubo.Date{}, "", &ParseError{Text: text, Err: err}
	}

	if len(parts) == 1 {
		// "Late Apr" covers Apr 20th to 30th, not a single made-up day.
		return first.snapStart(), first.snapEnd(), "", nil
	}

	second, err := parseDate(parts[1], year)
	if err != nil {
		return matsubo.Date{}, matsubo.Date{}, "", &ParseError{Text: text, Err: err}
	}

	if !first.hasYear && second.hasYear {
		first.year = second.year
	}
	start, end = first.snapStart(), second.snapEnd()
	if end.Before(start) {
		switch {
		case !second.hasYear:
			second.year++
			end = second.snapEnd()
		case !first.hasYear:
			first.year--
			start = first.snapStart()
		}
	}
	if end.Before(start) {
		return matsubo.Date{}, matsubo.Date{}, "", &ParseError{Text: text, Err: fmt.Errorf("range ends before it starts")}
	}

	if first.qualifier != "" || second.qualifier != "" {
		fuzzy = text
	}

	return start, end, fuzzy, nil
}

// salvageToken picks the token of the closing date that completes a truncated
// opening date: the second word, or the only one.
func salvageToken(s string) string {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	default:
		return fields[1]
	}
}

type parsedDate struct {
	year      int
	month     time.Month
	day       int
	hasYear   bool
	qualifier string
}

func (p parsedDate) date() matsubo.Date {
	return matsubo.Date{Year: p.year, Month: p.month, Day: p.day}
}

func (p parsedDate) withDay(day int) matsubo.Date {
	return matsubo.Date{Year: p.year, Month: p.month, Day: day}
}

func (p parsedDate) snapStart() matsubo.Date {
	switch p.qualifier {
	case QualifierMid:
		return p.withDay(15)
	case QualifierEnd, QualifierLate:
		return p.withDay(20)
	default:
		return p.date()
	}
}

func (p parsedDate) snapEnd() matsubo.Date {
	switch p.qualifier {
	case QualifierEarly:
		return p.withDay(10)
	case QualifierMid:
		return p.withDay(20)
	case QualifierEnd, QualifierLate:
		return p.withDay(p.date().DaysInMonth())
	default:
		return p.date()
	}
}

var (
	tokenSplitter = regexp.MustCompile(`[\s,.]+`)
	ordinalSuffix = regexp.MustCompile(`^(\d+)(st|nd|rd|th)$`)

	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
	qualifiers = map[string]string{
		"early": QualifierEarly,
		"mid":   QualifierMid,
		"end":   QualifierEnd,
		"late":  QualifierLate,
	}
)

// parseDate leniently reads one date expression. Missing components default
// to January 1st of defaultYear. Unknown words are ignored.
func parseDate(s string, defaultYear int) (parsedDate, error) {
	p := parsedDate{year: defaultYear, month: time.January, day: 1}
	var hasMonth, hasDay bool

	for _, tok := range tokenSplitter.Split(strings.TrimSpace(s), -1) {
		if tok == "" {
			continue
		}
		lower := strings.ToLower(tok)

		if q, ok := qualifiers[lower]; ok {
			if p.qualifier == "" {
				p.qualifier = q
			}
			continue
		}
		if m, ok := lookupMonth(lower); ok {
			p.month, hasMonth = m, true
			continue
		}
		if strings.ContainsAny(tok, "-/") {
			if t, err := dateparse.ParseIn(tok, time.UTC); err == nil {
				p.month, p.day, hasMonth, hasDay = t.Month(), t.Day(), true, true
				if t.Year() > 0 {
					p.year, p.hasYear = t.Year(), true
				}
			}
			continue
		}
		if m := ordinalSuffix.FindStringSubmatch(lower); m != nil {
			lower = m[1]
		}
		num, err := strconv.Atoi(lower)
		if err != nil {
			continue
		}
		switch {
		case num >= 1000:
			p.year, p.hasYear = num, true
		case num >= 1 && num <= 31:
			if hasDay {
				return parsedDate{}, fmt.Errorf("more than one day in %q", s)
			}
			p.day, hasDay = num, true
		}
	}

	if !hasMonth && !hasDay && !p.hasYear {
		return parsedDate{}, fmt.Errorf("no date in %q", s)
	}
	if p.day > p.date().DaysInMonth() {
		return parsedDate{}, fmt.Errorf("day %d out of range for %s", p.day, p.month)
	}

	return p, nil
}

// lookupMonth accepts month names abbreviated to at least three letters.
func lookupMonth(s string) (time.Month, bool) {
	if len(s) < 3 {
		return 0, false
	}
	m, ok := months[s[:3]]
	if !ok {
		return 0, false
	}
	full := strings.ToLower(m.String())
	if !strings.HasPrefix(full, s) {
		return 0, false
	}
	return m, true
}

var clockPattern = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)

// TimeRange parses "10:00 – 17:00" style text. Empty text means the time is
// unspecified and yields nil clocks.
func (n Normalizer) TimeRange(text string) (start, end *matsubo.Clock, err error) {
	parts := []string{text}
	for _, sep := range timeSeparators {
		if strings.Contains(text, sep) {
			parts = strings.SplitN(text, sep, 2)
			break
		}
	}
	if strings.TrimSpace(parts[0]) == "" {
		return nil, nil, nil
	}

	start, err = n.parseClock(parts[0])
	if err != nil {
		return nil, nil, &ParseError{Text: text, Err: err}
	}
	if len(parts) == 1 || strings.TrimSpace(parts[1]) == "" {
		return start, nil, nil
	}

	end, err = n.parseClock(parts[1])
	if err != nil {
		return nil, nil, &ParseError{Text: text, Err: err}
	}
	return start, end, nil
}

// parseClock reads the first clock time in s, anchored on January 1st of the
// current year for the zone offset.
func (n Normalizer) parseClock(s string) (*matsubo.Clock, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch lower {
	case "noon":
		lower = "12:00pm"
	case "midnight":
		lower = "12:00am"
	}

	m := clockPattern.FindStringSubmatch(lower)
	if m == nil {
		return nil, fmt.Errorf("no time in %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ReplaceAll(m[3], ".", "") {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 12 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return nil, fmt.Errorf("time out of range in %q", s)
	}

	now := n.now()
	anchor := time.Date(now.Year(), time.January, 1, hour, minute, 0, 0, now.Location())
	c := matsubo.ClockOf(anchor)
	return &c, nil
}
