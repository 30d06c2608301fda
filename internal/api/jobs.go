package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	mtserrs "github.com/jdholdren/matsubo/internal/errors"
	"github.com/jdholdren/matsubo/internal/serverutil"
	"github.com/jdholdren/matsubo/internal/worker"
)

type JobResp struct {
	Job    string `json:"job"`
	Status string `json:"status"`
}

// postJob starts a job in the background; progress shows up in the logs and
// metrics.
func (s Server) postJob(w http.ResponseWriter, r *http.Request) error {
	job := mux.Vars(r)["job"]

	err := s.jobs.Start(s.ctx, job)
	switch {
	case errors.Is(err, worker.ErrUnknownJob):
		return mtserrs.E(http.StatusNotFound, err)
	case errors.Is(err, worker.ErrAlreadyRunning):
		return mtserrs.E(http.StatusConflict, err)
	case err != nil:
		return err
	}

	return serverutil.WriteJSON(w, http.StatusAccepted, JobResp{Job: job, Status: "started"})
}
