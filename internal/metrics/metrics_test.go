package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesInstruments(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	ctx := context.Background()
	s.RunFinished(ctx, "DONE")
	s.StepFinished(ctx, "intake", 2*time.Second, nil)
	s.StepFinished(ctx, "advisory-synthesis", time.Second, errors.New("boom"))
	s.Retrieved(ctx, 2, 10*time.Millisecond, nil)
	s.SessionFinished(ctx, "intake", "TerminatedByPredicate")
	s.ConnectionOpened(ctx)
	s.PolicyDecided(ctx, "allow")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.Contains(t, text, "fingenie_runs_total")
	assert.Contains(t, text, `status="DONE"`)
	assert.Contains(t, text, "fingenie_step_duration_seconds")
	assert.Contains(t, text, `step="advisory-synthesis"`)
	assert.Contains(t, text, "fingenie_ws_connections")
	assert.Contains(t, text, `decision="allow"`)
}

func TestNoopService(t *testing.T) {
	s := NewNoop()
	s.RunFinished(context.Background(), "FAILED")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NoError(t, s.Shutdown(context.Background()))
}
