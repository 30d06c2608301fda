package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mtserrs "github.com/jdholdren/matsubo/internal/errors"
	"github.com/jdholdren/matsubo/internal/matsubo"
)

func TestEConstructor(t *testing.T) {
	got := mtserrs.E(
		"something went wrong",
		mtserrs.Detail{Field: "topics", Error: "unknown topic"},
		http.StatusBadRequest,
	)
	want := &mtserrs.Error{
		Err: errors.New("something went wrong"),
		Details: []mtserrs.Detail{
			{Field: "topics", Error: "unknown topic"},
		},
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestFrom(t *testing.T) {
	assert.Nil(t, mtserrs.From(nil))

	bad := mtserrs.E(http.StatusConflict, "already running")
	assert.Same(t, bad, mtserrs.From(fmt.Errorf("error starting job: %w", bad)))

	nf := mtserrs.From(fmt.Errorf("error fetching topics: %w", matsubo.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, nf.Status)

	other := mtserrs.From(errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, other.Status)
	assert.NotContains(t, other.Error(), "disk")
}

func TestMarshal(t *testing.T) {
	byts, err := json.Marshal(mtserrs.E(http.StatusBadRequest, "bad topic", mtserrs.Detail{Field: "topics", Error: "Narnia"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"bad topic","status":400,"details":[{"field":"topics","error":"Narnia"}]}`, string(byts))

	var back mtserrs.Error
	require.NoError(t, json.Unmarshal(byts, &back))
	assert.Equal(t, http.StatusBadRequest, back.Status)
	assert.EqualError(t, back.Err, "bad topic")
}
