package api

import (
	"fmt"
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gorilla/mux"

	mtserrs "github.com/jdholdren/matsubo/internal/errors"
	"github.com/jdholdren/matsubo/internal/matsubo"
)

const calendarProductID = "-//matsubo//events//EN"

// getDestinationCalendar exports the upcoming events of a destination's
// topics as iCalendar.
func (s Server) getDestinationCalendar(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx           = r.Context()
		destinationID = mux.Vars(r)["destinationID"]
	)
	topics, err := s.repo.DestinationTopics(ctx, destinationID)
	if err != nil {
		return fmt.Errorf("error fetching topics: %w", err)
	}
	if len(topics) == 0 {
		return mtserrs.E(http.StatusNotFound, "destination has no subscriptions")
	}

	today := s.today()
	events, err := s.repo.Events(ctx, matsubo.EventsArgs{Topics: topics, From: &today})
	if err != nil {
		return fmt.Errorf("error fetching events: %w", err)
	}
	events = matsubo.Merge(events, matsubo.SameIDAndDate, matsubo.KeepFirst)

	cal := calendar(fmt.Sprintf("Matsubo: %s", matsubo.JoinTopics(topics)), s.location, events)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	return cal.SerializeTo(w)
}

func calendar(name string, loc *time.Location, events []matsubo.Event) *ics.Calendar {
	cal := ics.NewCalendarFor("matsubo")
	cal.SetProductId(calendarProductID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetName(name)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	for _, e := range events {
		ve := cal.AddEvent(fmt.Sprintf("%s-%s@matsubo", e.ID, e.DateStart))
		ve.SetDtStampTime(e.DateAdded)
		ve.SetSummary(e.Name)
		ve.SetURL(e.URL)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Cancelled() {
			ve.SetStatus(ics.ObjectStatusCancelled)
		}

		end := e.DateEnd
		if end.IsZero() {
			end = e.DateStart
		}
		switch {
		case e.TimeStart != nil && e.DateFuzzy == "":
			ve.SetStartAt(e.TimeStart.On(e.DateStart))
			if e.TimeEnd != nil {
				ve.SetEndAt(e.TimeEnd.On(end))
			}
		default:
			// All-day end dates are exclusive.
			ve.SetAllDayStartAt(e.DateStart.In(time.UTC))
			ve.SetAllDayEndAt(end.AddDays(1).In(time.UTC))
		}
	}

	return cal
}
