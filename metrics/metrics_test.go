package metrics_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/crdview/crd"
	"go.jacobcolvin.com/crdview/metrics"
)

func TestOutcome(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err  error
		want string
	}{
		"nil": {
			want: metrics.OutcomeOK,
		},
		"acquire": {
			err:  fmt.Errorf("%w: %w", crd.ErrAcquire, errors.New("connection refused")),
			want: metrics.OutcomeAcquire,
		},
		"parse": {
			err:  fmt.Errorf("%w: %w", crd.ErrParse, errors.New("bad")),
			want: metrics.OutcomeParse,
		},
		"no definitions": {
			err:  crd.ErrNoDefinitions,
			want: metrics.OutcomeNoDefinitions,
		},
		"other": {
			err:  errors.New("boom"),
			want: metrics.OutcomeError,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, metrics.Outcome(tc.err))
		})
	}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	return string(body)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveLoad(20*time.Millisecond, 3, nil)
	m.ObserveLoad(time.Millisecond, 0, crd.ErrNoDefinitions)
	m.ObserveRows(12)
	m.ObserveToggle()
	m.ObserveToggle()

	out := scrape(t, m)

	assert.Contains(t, out, `crdview_loads_total{outcome="ok"} 1`)
	assert.Contains(t, out, `crdview_loads_total{outcome="no_definitions"} 1`)
	assert.Contains(t, out, `crdview_loads_total{outcome="parse_error"} 0`)
	assert.Contains(t, out, "crdview_load_duration_seconds_count 2")
	assert.Contains(t, out, "crdview_definitions 3")
	assert.Contains(t, out, "crdview_rendered_rows_count 1")
	assert.Contains(t, out, "crdview_toggles_total 2")
	assert.Contains(t, out, "go_goroutines")
}

func TestSetDefinitions(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveLoad(time.Millisecond, 5, nil)
	m.SetDefinitions(0)

	assert.Contains(t, scrape(t, m), "crdview_definitions 0")
}
