package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/hydrodash/app/dashboard/types"
	"github.com/canopy-network/hydrodash/pkg/config"
	"github.com/canopy-network/hydrodash/pkg/display"
	"github.com/canopy-network/hydrodash/pkg/events"
	"github.com/canopy-network/hydrodash/pkg/loader"
	"github.com/canopy-network/hydrodash/pkg/production"
	"github.com/canopy-network/hydrodash/pkg/retry"
	"github.com/canopy-network/hydrodash/pkg/session"
)

const header = "idempresa,anio,mes,idpozo,prod_pet,prod_gas,prod_agua,empresa,provincia,tipo_de_recurso,cuenca,formacion,fecha_data\n"

const sample = header +
	"1,2023,5,P-1,100,2,0,YPF,Neuquén,NO CONVENCIONAL,Neuquina,Vaca Muerta,2023-05-31\n" +
	"1,2023,6,P-1,120,2,0,YPF,Neuquén,NO CONVENCIONAL,Neuquina,Vaca Muerta,2023-06-30\n" +
	"2,2023,6,M-7,50,1,0,Pampa,Mendoza,CONVENCIONAL,Cuyana,,2023-06-30\n" +
	"3,2022,12,C-3,30,0,0,Tecpetrol,Chubut,CONVENCIONAL,Golfo San Jorge,,2022-12-31\n"

// testEnv is a dashboard wired to in-memory collaborators and a fake dataset server.
type testEnv struct {
	app    *types.App
	server *httptest.Server
	data   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	data := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sample.csv":
			_, _ = io.WriteString(w, sample)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(data.Close)

	ldr := loader.New(loader.Config{
		Timeout:  5 * time.Second,
		MaxBytes: 1 << 20,
		Retry:    retry.Config{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
	}, data.Client(), logger)
	hub := events.NewHub(logger)

	app := &types.App{
		Config:    config.Config{MaxBodyBytes: 1 << 20, RowsPerPage: 20, AllowedOrigins: []string{"http://localhost:3000"}},
		Loader:    ldr,
		Sessions:  session.NewStore(ldr, logger, hub),
		Hub:       hub,
		Formatter: display.Default(),
		Logger:    logger,
	}

	router, err := NewController(app).NewRouter()
	require.NoError(t, err)
	server := httptest.NewServer(WithCORS(router, app.Config.AllowedOrigins))
	t.Cleanup(server.Close)

	return &testEnv{app: app, server: server, data: data}
}

func (e *testEnv) do(t *testing.T, method, path, sessionID string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) loadSample(t *testing.T, sessionID string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/dataset/url", sessionID,
		strings.NewReader(`{"url":"`+e.data.URL+`/sample.csv"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/health", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	// Reads without a session see the default one and get no cookie.
	resp := env.do(t, http.MethodGet, "/api/session", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
	assert.Equal(t, session.DefaultID, decode[session.Status](t, resp).ID)

	// The first change issues the cookie.
	resp = env.do(t, http.MethodDelete, "/api/filters", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, cookie.Value, resp.Header.Get(sessionHeader))
	_, ok := env.app.Sessions.Get(cookie.Value)
	assert.True(t, ok)

	// The header selects an existing session without issuing a cookie.
	resp = env.do(t, http.MethodGet, "/api/session", cookie.Value, nil, "")
	assert.Empty(t, resp.Cookies())
	assert.Equal(t, cookie.Value, decode[session.Status](t, resp).ID)
}

func TestEndSession(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")
	require.Equal(t, 2, env.app.Sessions.Len())

	resp := env.do(t, http.MethodDelete, "/api/session", "s1", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, env.app.Sessions.Len())

	resp = env.do(t, http.MethodDelete, "/api/session", "s1", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/session", session.DefaultID, nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotNil(t, env.app.Sessions.Default())
}

func TestReadOnlyRequestsDoNotCreateSessions(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.app.Sessions.Default().LoadText(context.Background(), sample, "sample.csv"))

	for i := range 20 {
		env.do(t, http.MethodGet, "/api/session", "", nil, "")
		id := "reader-" + strconv.Itoa(i)
		for _, path := range []string{"/api/health", "/api/options", "/api/filters", "/api/view", "/api/records"} {
			resp := env.do(t, http.MethodGet, path, id, nil, "")
			require.Equal(t, http.StatusOK, resp.StatusCode, path)
		}
	}
	assert.Equal(t, 1, env.app.Sessions.Len())
}

func TestViewBeforeLoad(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/view", "/api/metrics", "/api/records", "/api/export.csv", "/api/export.xlsx", "/api/charts/monthly.png"} {
		t.Run(path, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, path, "s1", nil, "")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, errNoDataset, decode[map[string]string](t, resp)["error"])
		})
	}
}

func TestLoadURL(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	s, ok := env.app.Sessions.Get("s1")
	require.True(t, ok)
	assert.Len(t, s.Records(), 4)

	resp := env.do(t, http.MethodGet, "/api/view", "s1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.InDelta(t, 5300.0, body["totalProduction"], 1e-9)
	assert.EqualValues(t, 3, body["activeCompanies"])
	assert.EqualValues(t, 4, body["filteredCount"])
	assert.NotContains(t, body, "filteredData")

	resp = env.do(t, http.MethodGet, "/api/view?records=true", "s1", nil, "")
	full := decode[production.View](t, resp)
	assert.Len(t, full.FilteredData, 4)
}

func TestLoadURLErrors(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "invalid request body"},
		{"missing url", `{"url":" "}`, http.StatusBadRequest, "url is required"},
		{"file path", `{"url":"/etc/passwd"}`, http.StatusBadRequest, "url must use http or https"},
		{"not found upstream", `{"url":"` + env.data.URL + `/missing.csv"}`, http.StatusBadGateway, session.MsgURLLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/dataset/url", "s1", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.msg, decode[map[string]string](t, resp)["error"])
		})
	}

	// Failed loads keep the previous dataset.
	s, _ := env.app.Sessions.Get("s1")
	assert.Len(t, s.Records(), 4)
	assert.Equal(t, session.MsgURLLoadFailed, s.Status().Error)
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	t.Run("raw body", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/dataset/upload", "raw", strings.NewReader(sample), "text/csv")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		st := decode[session.Status](t, resp)
		assert.Equal(t, 4, st.Records)
		assert.Equal(t, "upload.csv", st.Source)
	})

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(uploadField, "produccion.csv")
		require.NoError(t, err)
		_, _ = io.WriteString(fw, sample)
		require.NoError(t, mw.Close())

		resp := env.do(t, http.MethodPost, "/api/dataset/upload", "multi", &buf, mw.FormDataContentType())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		st := decode[session.Status](t, resp)
		assert.Equal(t, 4, st.Records)
		assert.Equal(t, "produccion.csv", st.Source)
	})

	t.Run("multipart without file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())

		resp := env.do(t, http.MethodPost, "/api/dataset/upload", "nofile", &buf, mw.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, session.MsgFileLoadFailed, decode[map[string]string](t, resp)["error"])
	})

	t.Run("too large", func(t *testing.T) {
		env.app.Config.MaxBodyBytes = 64
		big := strings.Repeat("x", 128)
		resp := env.do(t, http.MethodPost, "/api/dataset/upload", "big", strings.NewReader(big), "text/csv")
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})
}

func TestFilters(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	resp := env.do(t, http.MethodGet, "/api/filters", "s1", nil, "")
	assert.JSONEq(t, `{"anio":null,"tipoRecurso":null,"provincia":null,"empresa":null}`, readBody(t, resp))

	resp = env.do(t, http.MethodPut, "/api/filters", "s1",
		strings.NewReader(`{"anio":2023,"tipoRecurso":"all","provincia":"Neuquén","empresa":null}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"anio":2023,"tipoRecurso":null,"provincia":"Neuquén","empresa":null}`, readBody(t, resp))

	resp = env.do(t, http.MethodGet, "/api/view", "s1", nil, "")
	body := decode[map[string]any](t, resp)
	assert.InDelta(t, 4220.0, body["totalProduction"], 1e-9)
	assert.EqualValues(t, 1, body["activeProvinces"])

	// A year sent as a string is accepted too.
	resp = env.do(t, http.MethodPut, "/api/filters", "s1", strings.NewReader(`{"anio":"2022"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"anio":2022,"tipoRecurso":null,"provincia":null,"empresa":null}`, readBody(t, resp))

	resp = env.do(t, http.MethodPut, "/api/filters", "s1", strings.NewReader(`{"anio":"dos mil"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/filters", "s1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s, _ := env.app.Sessions.Get("s1")
	assert.True(t, s.Filter().IsZero())
}

func TestOptions(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	resp := env.do(t, http.MethodGet, "/api/options", "s1", nil, "")
	opts := decode[production.Options](t, resp)
	assert.Equal(t, []int{2023, 2022}, opts.Years)
	assert.Equal(t, []string{"Chubut", "Mendoza", "Neuquén"}, opts.Provinces)
	assert.Equal(t, []string{"Pampa", "Tecpetrol", "YPF"}, opts.Companies)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	resp := env.do(t, http.MethodGet, "/api/metrics", "s1", nil, "")
	metrics := decode[[]display.Metric](t, resp)
	require.Len(t, metrics, 4)
	assert.Equal(t, "Producción Total", metrics[0].Title)
	assert.Equal(t, "3", metrics[1].Value)
}

func TestRecords(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	resp := env.do(t, http.MethodGet, "/api/records?q=ypf&limit=1&page=2", "s1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[production.Page](t, resp)
	assert.Equal(t, 2, page.TotalRows)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, 6, page.Rows[0].Month)

	for _, q := range []string{"limit=0", "limit=abc", "page=-1"} {
		resp := env.do(t, http.MethodGet, "/api/records?"+q, "s1", nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	resp := env.do(t, http.MethodGet, "/api/export.csv?q=mendoza", "s1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), production.ExportCSVFilename)

	lines := strings.Split(strings.TrimSpace(readBody(t, resp)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(production.ExportHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "M-7,Pampa,Mendoza"))
}

func TestExportXLSX(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	resp := env.do(t, http.MethodGet, "/api/export.xlsx", "s1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(production.SheetRecords)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestCharts(t *testing.T) {
	env := newTestEnv(t)
	env.loadSample(t, "s1")

	pngMagic := []byte("\x89PNG\r\n\x1a\n")
	for _, path := range []string{"/api/charts/monthly.png", "/api/charts/provinces.png", "/api/charts/companies.png"} {
		t.Run(path, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, path, "s1", nil, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(body, pngMagic))
		})
	}

	resp := env.do(t, http.MethodGet, "/api/charts/wells.png", "s1", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewSessionSeededFromDefault(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.app.Sessions.Default().LoadText(context.Background(), sample, "sample.csv"))

	resp := env.do(t, http.MethodGet, "/api/view", "fresh", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 4, decode[map[string]any](t, resp)["filteredCount"])

	resp = env.do(t, http.MethodPut, "/api/filters", "fresh", strings.NewReader(`{"provincia":"Chubut"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s, ok := env.app.Sessions.Get("fresh")
	require.True(t, ok)
	assert.Len(t, s.Records(), 4)
	view, _ := s.View()
	assert.Len(t, view.FilteredData, 1)
	assert.True(t, env.app.Sessions.Default().Filter().IsZero())
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/api/filters", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCORSRejectsUnknownOrigins(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		origin string
		status int
	}{
		{"foreign preflight", http.MethodOptions, "http://evil.test", http.StatusForbidden},
		{"foreign write", http.MethodDelete, "http://evil.test", http.StatusForbidden},
		{"foreign read", http.MethodGet, "http://evil.test", http.StatusForbidden},
		{"same origin", http.MethodGet, env.server.URL, http.StatusOK},
		{"no origin", http.MethodGet, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, env.server.URL+"/api/filters", nil)
			require.NoError(t, err)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			resp, err := env.server.Client().Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusForbidden {
				assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
			}
		})
	}
	assert.Equal(t, 1, env.app.Sessions.Len())
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}
