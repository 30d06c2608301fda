package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/metrics"
	"github.com/jdholdren/matsubo/internal/sqlite"
	"github.com/jdholdren/matsubo/internal/sqlite/sqlitetest"
	"github.com/jdholdren/matsubo/internal/worker"
)

type fakeJobs struct {
	started []string
	err     error
}

func (f *fakeJobs) Start(_ context.Context, job string) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, job)
	return nil
}

type fixture struct {
	handler http.Handler
	repo    sqlite.Repo
	jobs    *fakeJobs
}

func newTestApiServer(t *testing.T) fixture {
	t.Helper()

	repo := sqlite.New(sqlitetest.New(t))
	jobs := &fakeJobs{}
	s := NewServer(context.Background(), ServerConfig{Port: 0, Location: time.UTC}, repo, jobs, metrics.New(prometheus.NewRegistry()))

	return fixture{handler: s.Handler, repo: repo, jobs: jobs}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func upcoming(id string, topic matsubo.Topic, days int) matsubo.Event {
	start := matsubo.Today(time.Now(), time.UTC).AddDays(days)
	return matsubo.Event{
		ID:         id,
		Name:       "Event " + id,
		URL:        "https://tokyocheapo.com/events/" + id,
		DateStart:  start,
		DateEnd:    start,
		Location:   "Shibuya",
		Visibility: topic,
		Source:     matsubo.SourceTokyoCheapo,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newTestApiServer(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `matsubo_http_requests_total{code="200",method="get"} 1`)
}

func TestDestinationTopics(t *testing.T) {
	f := newTestApiServer(t)

	rec := f.do(t, http.MethodGet, "/api/destinations/chan-1/topics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/destinations/chan-1/topics", `{"topics":["kanto","Kansai"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"destination_id":"chan-1","topics":["Kansai","Kanto"]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/destinations/chan-1/topics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"destination_id":"chan-1","topics":["Kansai","Kanto"]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/destinations", "")
	assert.JSONEq(t, `{"destinations":[{"destination_id":"chan-1","topics":["Kansai","Kanto"]}]}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/destinations/chan-1/topics", `{"topics":["kanto","narnia"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `unknown topic \"narnia\"`)

	rec = f.do(t, http.MethodPut, "/api/destinations/chan-1/topics", `{"topics":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/destinations/chan-1/topics", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/destinations", "")
	assert.JSONEq(t, `{"destinations":[]}`, rec.Body.String())
}

func TestGetEvents(t *testing.T) {
	ctx := context.Background()
	f := newTestApiServer(t)
	require.NoError(t, f.repo.UpsertEvents(ctx, []matsubo.Event{
		upcoming("TC1", matsubo.TopicKanto, 1),
		upcoming("TC2", matsubo.TopicKanto, 2),
		upcoming("JC3", matsubo.TopicKansai, 3),
	}))

	type resp struct {
		Events     []EventResp    `json:"events"`
		Pagination paginationMeta `json:"pagination"`
	}
	get := func(path string) resp {
		rec := f.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var r resp
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
		return r
	}

	all := get("/api/events")
	assert.Len(t, all.Events, 3)
	assert.Equal(t, 3, all.Pagination.Total)

	kansai := get("/api/events?topic=kansai")
	require.Len(t, kansai.Events, 1)
	assert.Equal(t, "JC3", kansai.Events[0].ID)
	assert.Equal(t, "Kansai", kansai.Events[0].Topic)

	from := matsubo.Today(time.Now(), time.UTC).AddDays(2)
	later := get(fmt.Sprintf("/api/events?from=%s", from))
	assert.Len(t, later.Events, 2)

	paged := get("/api/events?limit=1&offset=1")
	require.Len(t, paged.Events, 1)
	assert.Equal(t, "TC2", paged.Events[0].ID)

	rec := f.do(t, http.MethodGet, "/api/events?topic=narnia&from=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"from"`)
	assert.Contains(t, rec.Body.String(), `"field":"topic"`)
}

func TestGetDestinationCalendar(t *testing.T) {
	ctx := context.Background()
	f := newTestApiServer(t)

	cancelled := upcoming("TC2", matsubo.TopicKanto, 2)
	cancelled.Status = "cancelled"
	timed := upcoming("TC4", matsubo.TopicKanto, 4)
	timed.TimeStart = &matsubo.Clock{Hour: 19}
	require.NoError(t, f.repo.UpsertEvents(ctx, []matsubo.Event{
		upcoming("TC1", matsubo.TopicKanto, 1),
		cancelled,
		upcoming("JC3", matsubo.TopicKansai, 3),
		timed,
		upcoming("TC0", matsubo.TopicKanto, -1),
	}))

	rec := f.do(t, http.MethodGet, "/api/destinations/chan-1/events.ics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, f.repo.SetDestinationTopics(ctx, "chan-1", []matsubo.Topic{matsubo.TopicKanto}))
	rec = f.do(t, http.MethodGet, "/api/destinations/chan-1/events.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))

	cal, err := ics.ParseCalendar(rec.Body)
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3, "past and other-topic events are left out")

	summaries := map[string]*ics.VEvent{}
	for _, e := range events {
		summaries[e.GetProperty(ics.ComponentPropertySummary).Value] = e
	}
	require.Contains(t, summaries, "Event TC2")
	assert.Equal(t, "CANCELLED", summaries["Event TC2"].GetProperty(ics.ComponentPropertyStatus).Value)

	start, err := summaries["Event TC4"].GetStartAt()
	require.NoError(t, err)
	assert.Equal(t, 19, start.UTC().Hour())

	allDay, err := summaries["Event TC1"].GetAllDayStartAt()
	require.NoError(t, err)
	assert.Equal(t, matsubo.Today(time.Now(), time.UTC).AddDays(1), matsubo.DateOf(allDay))
}

func TestPostJob(t *testing.T) {
	f := newTestApiServer(t)

	rec := f.do(t, http.MethodPost, "/api/jobs/scrape", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"scrape"}, f.jobs.started)

	f.jobs.err = fmt.Errorf("error starting notify: %w", worker.ErrAlreadyRunning)
	rec = f.do(t, http.MethodPost, "/api/jobs/notify", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.jobs.err = fmt.Errorf("%w: %q", worker.ErrUnknownJob, "dance")
	rec = f.do(t, http.MethodPost, "/api/jobs/dance", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
