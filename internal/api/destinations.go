package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	mtserrs "github.com/jdholdren/matsubo/internal/errors"
	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/serverutil"
)

type (
	DestinationResp struct {
		DestinationID string   `json:"destination_id"`
		Topics        []string `json:"topics"`
	}

	PutTopicsReq struct {
		Topics []string `json:"topics"`
	}
)

// Validate rejects unknown topics. An empty list is allowed and unsubscribes.
func (r PutTopicsReq) Validate() error {
	_, invalid := matsubo.ParseTopics(r.Topics)
	if len(invalid) == 0 {
		return nil
	}

	details := make([]mtserrs.Detail, 0, len(invalid))
	for _, tok := range invalid {
		details = append(details, mtserrs.Detail{Field: "topics", Error: fmt.Sprintf("unknown topic %q", tok)})
	}
	return mtserrs.E(http.StatusBadRequest, "invalid topics", details)
}

func apiDestination(destinationID string, topics []matsubo.Topic) DestinationResp {
	strs := make([]string, 0, len(topics))
	for _, t := range topics {
		strs = append(strs, string(t))
	}
	return DestinationResp{DestinationID: destinationID, Topics: strs}
}

func (s Server) getDestinations(w http.ResponseWriter, r *http.Request) error {
	subs, err := s.repo.AllSubscriptions(r.Context())
	if err != nil {
		return fmt.Errorf("error fetching subscriptions: %w", err)
	}

	resp := make([]DestinationResp, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, apiDestination(sub.DestinationID, sub.Topics))
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct {
		Destinations []DestinationResp `json:"destinations"`
	}{resp})
}

func (s Server) getDestinationTopics(w http.ResponseWriter, r *http.Request) error {
	destinationID := mux.Vars(r)["destinationID"]
	topics, err := s.repo.DestinationTopics(r.Context(), destinationID)
	if err != nil {
		return fmt.Errorf("error fetching topics: %w", err)
	}
	if len(topics) == 0 {
		return mtserrs.E(http.StatusNotFound, "destination has no subscriptions")
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiDestination(destinationID, topics))
}

func (s Server) putDestinationTopics(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx           = r.Context()
		destinationID = mux.Vars(r)["destinationID"]
	)
	body, err := serverutil.DecodeValid[PutTopicsReq](r.Body)
	if err != nil {
		return err
	}

	topics, _ := matsubo.ParseTopics(body.Topics)
	if err := s.repo.SetDestinationTopics(ctx, destinationID, topics); err != nil {
		return fmt.Errorf("error saving topics: %w", err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiDestination(destinationID, topics))
}

func (s Server) deleteDestinationTopics(w http.ResponseWriter, r *http.Request) error {
	if err := s.repo.RemoveDestination(r.Context(), mux.Vars(r)["destinationID"]); err != nil {
		return fmt.Errorf("error removing destination: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
