package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/crdview/source"
	"go.jacobcolvin.com/crdview/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile("../crd/testdata/" + name)
	require.NoError(t, err)

	return data
}

func newServer(t *testing.T, opts ...web.Option) *web.Server {
	t.Helper()

	srv, err := web.New(source.NewText("mixed.yaml", readTestdata(t, "mixed.yaml")), opts...)
	require.NoError(t, err)

	return srv
}

func loadedServer(t *testing.T, opts ...web.Option) *web.Server {
	t.Helper()

	srv := newServer(t, opts...)
	require.NoError(t, srv.Reload(t.Context(), nil))

	return srv
}

func do(t *testing.T, srv *web.Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))

	return v
}

type definitionsResponse struct {
	Error       string `json:"error"`
	Source      string `json:"source"`
	Definitions []struct {
		Name     string `json:"name"`
		Kind     string `json:"kind"`
		Versions []struct {
			Name       string `json:"name"`
			Storage    bool   `json:"storage"`
			Deprecated bool   `json:"deprecated"`
			Schema     bool   `json:"schema"`
		} `json:"versions"`
	} `json:"definitions"`
	Busy bool `json:"busy"`
}

type rowsResponse struct {
	Message string `json:"message"`
	Rows    []struct {
		Path       string `json:"path"`
		Display    string `json:"display"`
		Name       string `json:"name"`
		Type       string `json:"type"`
		Kind       string `json:"kind"`
		Depth      int    `json:"depth"`
		Expandable bool   `json:"expandable"`
		Expanded   bool   `json:"expanded"`
		Required   bool   `json:"required"`
		Items      bool   `json:"items"`
		Caption    string `json:"caption"`
	} `json:"rows"`
	Schema bool `json:"schema"`
}

func TestIndex(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		target       string
		wantLocation string
		wantBody     string
		loaded       bool
	}{
		"empty": {
			target:   "/",
			wantBody: web.MessageEmpty,
		},
		"first definition": {
			target:       "/",
			loaded:       true,
			wantLocation: "/crds/frobs.example.com",
		},
		"first match": {
			target:       "/?q=gadget",
			loaded:       true,
			wantLocation: "/crds/gadgets.example.com?q=gadget",
		},
		"no match": {
			target:   "/?q=nothing",
			loaded:   true,
			wantBody: web.MessageNoMatch,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := newServer(t)
			if tc.loaded {
				require.NoError(t, srv.Reload(t.Context(), nil))
			}

			rec := do(t, srv, http.MethodGet, tc.target, "")

			if tc.wantLocation != "" {
				assert.Equal(t, http.StatusSeeOther, rec.Code)
				assert.Equal(t, tc.wantLocation, rec.Header().Get("Location"))

				return
			}

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestPage(t *testing.T) {
	t.Parallel()

	srv := loadedServer(t)

	tcs := map[string]struct {
		target   string
		want     []string
		wantNot  []string
		wantCode int
	}{
		"default version": {
			target:   "/crds/gadgets.example.com",
			wantCode: http.StatusOK,
			want: []string{
				"<h1>Gadget</h1>",
				"example.com / gadgets · Cluster",
				"v1beta1 (deprecated)",
				"v1 (storage)",
				`title="spec"`,
			},
			wantNot: []string{"open="},
		},
		"collapsed root": {
			target:   "/crds/gadgets.example.com?version=v1",
			wantCode: http.StatusOK,
			want:     []string{`title="spec"`, "open="},
			wantNot:  []string{`title="spec.spec"`},
		},
		"expanded root": {
			target:   "/crds/gadgets.example.com?version=v1&open=",
			wantCode: http.StatusOK,
			want:     []string{`title="spec"`, `title="spec.spec"`, "▾ "},
			wantNot:  []string{`title="spec.spec.size"`},
		},
		"no schema": {
			target:   "/crds/frobs.example.com",
			wantCode: http.StatusOK,
			want:     []string{"<h1>Frob</h1>", web.MessageNoSchema},
		},
		"unknown definition": {
			target:   "/crds/nope.example.com",
			wantCode: http.StatusNotFound,
			want:     []string{"not found"},
		},
		"unknown version": {
			target:   "/crds/gadgets.example.com?version=v9",
			wantCode: http.StatusNotFound,
			want:     []string{"Version &#34;v9&#34; not found."},
		},
		"filtered sidebar": {
			target:   "/crds/gadgets.example.com?q=gadg",
			wantCode: http.StatusOK,
			want:     []string{"Gadget<small>"},
			wantNot:  []string{"Frob<small>"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, srv, http.MethodGet, tc.target, "")
			assert.Equal(t, tc.wantCode, rec.Code)

			body := rec.Body.String()
			for _, want := range tc.want {
				assert.Contains(t, body, want)
			}

			for _, notWant := range tc.wantNot {
				assert.NotContains(t, body, notWant)
			}
		})
	}
}

func TestListDefinitions(t *testing.T) {
	t.Parallel()

	srv := loadedServer(t)

	rec := do(t, srv, http.MethodGet, "/api/definitions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[definitionsResponse](t, rec)
	assert.Equal(t, "mixed.yaml", resp.Source)
	assert.False(t, resp.Busy)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Definitions, 2)
	assert.Equal(t, "frobs.example.com", resp.Definitions[0].Name)
	assert.Equal(t, "gadgets.example.com", resp.Definitions[1].Name)

	gadget := resp.Definitions[1]
	require.Len(t, gadget.Versions, 2)
	assert.True(t, gadget.Versions[0].Deprecated)
	assert.True(t, gadget.Versions[1].Storage)
	assert.True(t, gadget.Versions[1].Schema)
	assert.False(t, resp.Definitions[0].Versions[0].Schema)

	rec = do(t, srv, http.MethodGet, "/api/definitions?q=FROB", "")
	resp = decode[definitionsResponse](t, rec)
	require.Len(t, resp.Definitions, 1)
	assert.Equal(t, "Frob", resp.Definitions[0].Kind)

	rec = do(t, srv, http.MethodGet, "/api/definitions/gadgets.example.com", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"Gadget"`)

	rec = do(t, srv, http.MethodGet, "/api/definitions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRows(t *testing.T) {
	t.Parallel()

	srv := loadedServer(t)

	tcs := map[string]struct {
		target      string
		wantMessage string
		wantNames   []string
		wantCode    int
		wantSchema  bool
	}{
		"collapsed": {
			target:     "/api/definitions/gadgets.example.com/versions/v1/rows",
			wantCode:   http.StatusOK,
			wantSchema: true,
			wantNames:  []string{"spec"},
		},
		"open root": {
			target:     "/api/definitions/gadgets.example.com/versions/v1/rows?open=",
			wantCode:   http.StatusOK,
			wantSchema: true,
			wantNames:  []string{"spec", "spec"},
		},
		"open nested without parent": {
			target:     `/api/definitions/gadgets.example.com/versions/v1/rows?open=.%22spec%22`,
			wantCode:   http.StatusOK,
			wantSchema: true,
			wantNames:  []string{"spec"},
		},
		"expand all": {
			target:     "/api/definitions/gadgets.example.com/versions/v1/rows?depth=-1",
			wantCode:   http.StatusOK,
			wantSchema: true,
			wantNames:  []string{"spec", "spec", "size", "color"},
		},
		"unknown open path": {
			target:     "/api/definitions/gadgets.example.com/versions/v1/rows?open=.%22nope%22",
			wantCode:   http.StatusOK,
			wantSchema: true,
			wantNames:  []string{"spec"},
		},
		"no schema": {
			target:      "/api/definitions/frobs.example.com/versions/v1alpha1/rows",
			wantCode:    http.StatusOK,
			wantMessage: web.MessageNoSchema,
			wantNames:   []string{},
		},
		"unknown version": {
			target:   "/api/definitions/gadgets.example.com/versions/v9/rows",
			wantCode: http.StatusNotFound,
		},
		"bad depth": {
			target:   "/api/definitions/gadgets.example.com/versions/v1/rows?depth=all",
			wantCode: http.StatusBadRequest,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, srv, http.MethodGet, tc.target, "")
			require.Equal(t, tc.wantCode, rec.Code)

			if tc.wantCode != http.StatusOK {
				return
			}

			resp := decode[rowsResponse](t, rec)
			assert.Equal(t, tc.wantSchema, resp.Schema)
			assert.Equal(t, tc.wantMessage, resp.Message)

			names := make([]string, 0, len(resp.Rows))
			for _, row := range resp.Rows {
				names = append(names, row.Name)
			}

			assert.Equal(t, tc.wantNames, names)
		})
	}
}

func TestRowsFields(t *testing.T) {
	t.Parallel()

	srv := loadedServer(t)

	rec := do(t, srv, http.MethodGet, "/api/definitions/gadgets.example.com/versions/v1/rows?depth=-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[rowsResponse](t, rec)
	require.Len(t, resp.Rows, 4)

	root := resp.Rows[0]
	assert.Empty(t, root.Path)
	assert.Equal(t, "spec", root.Display)
	assert.True(t, root.Required)
	assert.True(t, root.Expanded)
	assert.Equal(t, "object", root.Kind)

	size := resp.Rows[2]
	assert.Equal(t, "spec.spec.size", size.Display)
	assert.Equal(t, "string", size.Type)
	assert.Equal(t, "leaf", size.Kind)
	assert.Equal(t, 2, size.Depth)
	assert.False(t, size.Expandable)
	assert.False(t, size.Required)
}

const portsCRD = `apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: listeners.example.com
spec:
  group: example.com
  scope: Namespaced
  names:
    kind: Listener
    plural: listeners
  versions:
    - name: v1
      served: true
      storage: true
      schema:
        openAPIV3Schema:
          type: object
          properties:
            spec:
              type: object
              properties:
                ports:
                  type: array
                  items:
                    type: object
                    properties:
                      port:
                        type: integer
`

func TestItemsCaption(t *testing.T) {
	t.Parallel()

	srv, err := web.New(source.NewText("listeners.yaml", []byte(portsCRD)))
	require.NoError(t, err)
	require.NoError(t, srv.Reload(t.Context(), nil))

	rec := do(t, srv, http.MethodGet, "/api/definitions/listeners.example.com/versions/v1/rows?depth=-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[rowsResponse](t, rec)
	require.Len(t, resp.Rows, 5)

	for i, row := range resp.Rows {
		if i == 3 {
			continue
		}

		assert.False(t, row.Items, row.Display)
		assert.Empty(t, row.Caption, row.Display)
	}

	items := resp.Rows[3]
	assert.Equal(t, "[index]", items.Name)
	assert.True(t, items.Items)
	assert.Equal(t, "Array Items (object)", items.Caption)

	page := do(t, srv, http.MethodGet,
		"/crds/listeners.example.com?open=&open=.%22spec%22&open=.%22spec%22.%22ports%22", "")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), `<span class="caption">Array Items (object)</span>`)
}

func TestReload(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/widgets.yaml" {
			_, _ = w.Write(readTestdata(t, "widgets.yaml"))

			return
		}

		http.NotFound(w, r)
	}))
	t.Cleanup(upstream.Close)

	urlSource := web.WithURLSource(func(url string) source.Source {
		return source.NewURL(url, source.WithHTTPClient(upstream.Client()))
	})

	tcs := map[string]struct {
		body      string
		wantError string
		wantCode  int
		wantCount int
	}{
		"current source": {
			wantCode:  http.StatusOK,
			wantCount: 2,
		},
		"url": {
			body:      `{"url": "` + upstream.URL + `/widgets.yaml"}`,
			wantCode:  http.StatusOK,
			wantCount: 1,
		},
		"url not found": {
			body:      `{"url": "` + upstream.URL + `/missing.yaml"}`,
			wantCode:  http.StatusBadGateway,
			wantError: "Failed to load: ",
			wantCount: 2,
		},
		"text": {
			body:      `{"text": "apiVersion: apiextensions.k8s.io/v1\nkind: CustomResourceDefinition\nmetadata:\n  name: a.example.com\n"}`,
			wantCode:  http.StatusOK,
			wantCount: 1,
		},
		"invalid yaml": {
			body:      `{"text": "a: [1, 2"}`,
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "Invalid YAML: ",
			wantCount: 2,
		},
		"no definitions": {
			body:      `{"text": "kind: ConfigMap\n"}`,
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "No CustomResourceDefinitions found in the file.",
			wantCount: 2,
		},
		"url and text": {
			body:      `{"url": "https://example.com", "text": "a: b"}`,
			wantCode:  http.StatusBadRequest,
			wantCount: 2,
		},
		"malformed body": {
			body:      `{"url": `,
			wantCode:  http.StatusBadRequest,
			wantCount: 2,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := loadedServer(t, urlSource)

			rec := do(t, srv, http.MethodPost, "/api/reload", tc.body)
			require.Equal(t, tc.wantCode, rec.Code, rec.Body.String())

			if tc.wantError != "" {
				assert.Contains(t, rec.Body.String(), tc.wantError)
			}

			resp := decode[definitionsResponse](t, do(t, srv, http.MethodGet, "/api/definitions", ""))
			assert.Len(t, resp.Definitions, tc.wantCount)
		})
	}
}

func TestReloadFailureShowsBanner(t *testing.T) {
	t.Parallel()

	srv := loadedServer(t)

	rec := do(t, srv, http.MethodPost, "/api/reload", `{"text": "kind: Service\n"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodGet, "/crds/gadgets.example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<p class="error">No CustomResourceDefinitions found in the file.</p>`)
	assert.Contains(t, rec.Body.String(), "<h1>Gadget</h1>")
}

// blockingSource blocks every Load until release is closed.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	data    []byte
	once    sync.Once
}

func (b *blockingSource) Load(ctx context.Context) ([]byte, error) {
	b.once.Do(func() { close(b.started) })

	select {
	case <-b.release:
		return b.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *blockingSource) String() string {
	return "blocking"
}

func TestReloadBusy(t *testing.T) {
	t.Parallel()

	src := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		data:    readTestdata(t, "widgets.yaml"),
	}

	srv, err := web.New(src)
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		done <- srv.Reload(context.Background(), nil)
	}()

	select {
	case <-src.started:
	case <-time.After(5 * time.Second):
		t.Fatal("load did not start")
	}

	resp := decode[definitionsResponse](t, do(t, srv, http.MethodGet, "/api/definitions", ""))
	assert.True(t, resp.Busy)

	rec := do(t, srv, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.ErrorIs(t, srv.Reload(t.Context(), nil), web.ErrBusy)

	close(src.release)
	require.NoError(t, <-done)

	resp = decode[definitionsResponse](t, do(t, srv, http.MethodGet, "/api/definitions", ""))
	assert.False(t, resp.Busy)
	assert.Len(t, resp.Definitions, 1)
}

func TestClear(t *testing.T) {
	t.Parallel()

	srv := loadedServer(t)

	rec := do(t, srv, http.MethodPost, "/api/clear", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	resp := decode[definitionsResponse](t, do(t, srv, http.MethodGet, "/api/definitions", ""))
	assert.Empty(t, resp.Definitions)

	rec = do(t, srv, http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	resp = decode[definitionsResponse](t, do(t, srv, http.MethodGet, "/api/definitions", ""))
	assert.Len(t, resp.Definitions, 2)

	rec = do(t, srv, http.MethodPost, "/clear", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestMetricsAndHealth(t *testing.T) {
	t.Parallel()

	srv := loadedServer(t)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	do(t, srv, http.MethodGet, "/api/definitions/gadgets.example.com/versions/v1/rows", "")

	rec = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `crdview_loads_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "crdview_definitions 2")
	assert.Contains(t, rec.Body.String(), "crdview_rendered_rows_count 1")
}
