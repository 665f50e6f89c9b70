package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStep(t *testing.T) {
	r := NewRecorder()
	start := time.Now()

	r.ObserveStep("did", start, nil)
	r.ObserveStep("did", start, errors.New("boom"))
	r.ObserveStep("messaging", start, nil)
	r.SkipStep("account")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.steps.WithLabelValues("did", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.steps.WithLabelValues("did", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.steps.WithLabelValues("account", OutcomeSkipped)))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveStep("did", time.Now(), nil)
	r.SkipStep("did")
	require.Error(t, r.Push(context.Background(), "http://localhost", "job", "devnet"))
}

func TestPush(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	router := chi.NewRouter()
	router.Put("/metrics/*", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	r := NewRecorder()
	r.ObserveStep("entity", time.Now(), nil)
	require.NoError(t, r.Push(context.Background(), srv.URL, "oracles", "devnet"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/metrics/job/oracles/network/devnet", path)
	assert.Contains(t, body, "oracle_provisioner_steps_total")
}
