package api

import (
	"fmt"
	"net/http"
	"time"

	mtserrs "github.com/jdholdren/matsubo/internal/errors"
	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/serverutil"
)

type EventResp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	DateStart   string    `json:"date_start"`
	DateEnd     string    `json:"date_end"`
	DateFuzzy   string    `json:"date_fuzzy,omitempty"`
	Dates       string    `json:"dates"`
	Times       string    `json:"times"`
	Location    string    `json:"location,omitempty"`
	Cost        string    `json:"cost,omitempty"`
	Status      string    `json:"status,omitempty"`
	Cancelled   bool      `json:"cancelled"`
	Topic       string    `json:"topic"`
	Source      string    `json:"source"`
	DateAdded   time.Time `json:"date_added"`
}

func apiEvent(e matsubo.Event) EventResp {
	return EventResp{
		ID:          e.ID,
		Name:        e.Name,
		URL:         e.URL,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		DateStart:   e.DateStart.String(),
		DateEnd:     e.DateEnd.String(),
		DateFuzzy:   e.DateFuzzy,
		Dates:       e.DateRange(),
		Times:       e.TimeRange(),
		Location:    e.Location,
		Cost:        e.Cost,
		Status:      e.Status,
		Cancelled:   e.Cancelled(),
		Topic:       string(e.Visibility),
		Source:      string(e.Source),
		DateAdded:   e.DateAdded,
	}
}

// eventsArgs reads ?topic=kanto&topic=kansai&from=2024-03-01&until=2024-03-08.
func eventsArgs(r *http.Request) (matsubo.EventsArgs, error) {
	var (
		query   = r.URL.Query()
		args    matsubo.EventsArgs
		details []mtserrs.Detail
	)

	topics, invalid := matsubo.ParseTopics(query["topic"])
	for _, tok := range invalid {
		details = append(details, mtserrs.Detail{Field: "topic", Error: fmt.Sprintf("unknown topic %q", tok)})
	}
	args.Topics = topics

	for _, p := range []struct {
		field string
		dst   **matsubo.Date
	}{
		{"from", &args.From},
		{"until", &args.Until},
	} {
		v := query.Get(p.field)
		if v == "" {
			continue
		}
		d, err := matsubo.ParseDate(v)
		if err != nil {
			details = append(details, mtserrs.Detail{Field: p.field, Error: "expected a date like 2006-01-02"})
			continue
		}
		*p.dst = &d
	}

	if len(details) > 0 {
		return args, mtserrs.E(http.StatusBadRequest, "invalid query", details)
	}
	return args, nil
}

func (s Server) getEvents(w http.ResponseWriter, r *http.Request) error {
	args, err := eventsArgs(r)
	if err != nil {
		return err
	}

	events, err := s.repo.Events(r.Context(), args)
	if err != nil {
		return fmt.Errorf("error fetching events: %w", err)
	}

	limit, offset := parsePaginationParams(r, 50, 500)
	window, meta := page(events, limit, offset)
	resp := make([]EventResp, 0, len(window))
	for _, e := range window {
		resp = append(resp, apiEvent(e))
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct {
		Events     []EventResp    `json:"events"`
		Pagination paginationMeta `json:"pagination"`
	}{resp, meta})
}
