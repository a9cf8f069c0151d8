package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typerace/internal/model"
)

func TestRemoteSubmit(t *testing.T) {
	var got model.Result
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scores" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got.Mode == model.ModeCode {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL+"/", nil)
	require.NoError(t, remote.SubmitResult(context.Background(), model.Result{Mode: model.ModeSolo, WPM: 88}))
	require.Equal(t, 88.0, got.WPM)

	require.Error(t, remote.SubmitResult(context.Background(), model.Result{Mode: model.ModeCode}))
}

type failingSubmitter struct{}

func (failingSubmitter) SubmitResult(context.Context, model.Result) error {
	return errors.New("nope")
}

func TestMultiSubmitsToAll(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	err := Multi{failingSubmitter{}, st}.SubmitResult(ctx, model.Result{Mode: model.ModeSolo})
	require.Error(t, err)

	results, err := st.ListResults(ctx, model.StatsConfig{})
	require.NoError(t, err)
	require.Len(t, results, 1, "a failing submitter does not stop the others")
}
