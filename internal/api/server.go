// Package api is the operator's HTTP surface: health, metrics, subscription
// management, job triggers and event listings.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/metrics"
	"github.com/jdholdren/matsubo/internal/serverutil"
)

type (
	// Jobs starts a job by name without waiting for it.
	Jobs interface {
		Start(ctx context.Context, job string) error
	}

	// Server serves the operator API.
	Server struct {
		*http.Server

		// ctx outlives requests; triggered jobs run with it.
		ctx      context.Context
		repo     matsubo.Repository
		jobs     Jobs
		location *time.Location
	}

	ServerConfig struct {
		Port       int
		CorsOrigin string
		// Location decides what "today" is for calendar exports.
		Location *time.Location
	}
)

func NewServer(ctx context.Context, config ServerConfig, repo matsubo.Repository, jobs Jobs, m *metrics.Metrics) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}

	loc := config.Location
	if loc == nil {
		loc = time.UTC
	}
	corsOrigin := config.CorsOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}

	srvr := Server{
		ctx:      ctx,
		repo:     repo,
		jobs:     jobs,
		location: loc,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Handler: handlers.RecoveryHandler(
				handlers.RecoveryLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError)),
			)(handlers.CORS(
				handlers.AllowedOrigins([]string{corsOrigin}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(m.Instrument(r))),
		},
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := serverutil.ErrRouter{Router: r.PathPrefix("/api").Subrouter()}
	api.Use(serverutil.AccessLogMiddleware) // Log everything but probes

	// Subscription management
	api.HandleFuncE("/destinations", srvr.getDestinations).Methods(http.MethodGet)
	api.HandleFuncE("/destinations/{destinationID}/topics", srvr.getDestinationTopics).Methods(http.MethodGet)
	api.HandleFuncE("/destinations/{destinationID}/topics", srvr.putDestinationTopics).Methods(http.MethodPut)
	api.HandleFuncE("/destinations/{destinationID}/topics", srvr.deleteDestinationTopics).Methods(http.MethodDelete)

	// Event listings
	api.HandleFuncE("/events", srvr.getEvents).Methods(http.MethodGet)
	api.HandleFuncE("/destinations/{destinationID}/events.ics", srvr.getDestinationCalendar).Methods(http.MethodGet)

	// Manual job runs
	api.HandleFuncE("/jobs/{job}", srvr.postJob).Methods(http.MethodPost)

	slog.Debug("configured api server", "port", config.Port)

	return &srvr
}

func (s Server) today() matsubo.Date {
	return matsubo.Today(time.Now(), s.location)
}
