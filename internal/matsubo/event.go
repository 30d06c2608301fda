package matsubo

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type (
	// Event is one scraped listing, normalized.
	//
	// Two events are the same logical event when their IDs are equal; see
	// [SameID] and [SameIDAndDate].
	Event struct {
		// Source tag plus the source-local id, e.g. TC12345.
		ID          string `db:"id"`
		Name        string `db:"name"`
		Description string `db:"description"`
		URL         string `db:"url"`
		ImageURL    string `db:"image_url"`

		DateStart Date `db:"date_start"`
		// Equal to DateStart for single-day events.
		DateEnd Date `db:"date_end"`
		// Shown instead of the start/end range when set. DateStart and DateEnd
		// still hold a best-effort window for filtering.
		DateFuzzy string `db:"date_fuzzy"`
		TimeStart *Clock `db:"time_start"`
		TimeEnd   *Clock `db:"time_end"`

		Location   string `db:"location"`
		Cost       string `db:"cost"`
		Status     string `db:"status"`
		Other      string `db:"other"`
		Visibility Topic  `db:"visibility"`
		Source     Source `db:"source"`

		// Set by the store on first insert only.
		DateAdded time.Time `db:"date_added"`
	}

	// Source identifies where an event was scraped from.
	Source string
)

const (
	SourceTokyoCheapo Source = "Web:TokyoCheapo"
	SourceJapanCheapo Source = "Web:JapanCheapo"
)

var (
	cancelledStatuses = []string{"cancelled", "canceled"}
	onlineStatuses    = []string{"online"}
)

// Cancelled reports whether the status marks the event as cancelled.
func (e Event) Cancelled() bool {
	return statusContains(e.Status, cancelledStatuses)
}

// Online reports whether the status marks the event as online-only.
func (e Event) Online() bool {
	return statusContains(e.Status, onlineStatuses)
}

func statusContains(status string, words []string) bool {
	status = strings.ToLower(status)
	for _, w := range words {
		if strings.Contains(status, w) {
			return true
		}
	}
	return false
}

// DateRange renders when the event happens. The fuzzy label wins when set.
func (e Event) DateRange() string {
	if e.DateFuzzy != "" {
		return e.DateFuzzy
	}
	if e.DateStart.IsZero() {
		return ""
	}
	start := FormatDate(e.DateStart)
	if e.DateEnd.IsZero() || e.DateEnd == e.DateStart {
		return start
	}
	return fmt.Sprintf("%s - %s", start, FormatDate(e.DateEnd))
}

// TimeRange renders the time of day, or --- when unspecified.
func (e Event) TimeRange() string {
	if e.TimeStart == nil {
		return "---"
	}
	if e.TimeEnd == nil {
		return e.TimeStart.String()
	}
	return fmt.Sprintf("%s - %s", e.TimeStart, e.TimeEnd)
}

func (e Event) String() string {
	return fmt.Sprintf("%s [%s] %s", e.Name, e.ID, e.DateRange())
}

// Truncate cuts s to at most n characters, ending in an ellipsis when
// anything was dropped. It never splits a multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
