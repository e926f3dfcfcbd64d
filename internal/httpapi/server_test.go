package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapscan/internal/domain"
	"gapscan/internal/metrics"
)

type fakeService struct {
	ingested   []domain.Record
	ingestErr  error
	analysis   *domain.Analysis
	analyzeErr error
	groups     []domain.ClusterGroup
	domainsErr error
}

func (f *fakeService) Ingest(_ context.Context, records []domain.Record) (int, error) {
	if f.ingestErr != nil {
		return 0, f.ingestErr
	}
	f.ingested = records
	return len(records), nil
}

func (f *fakeService) Analyze(context.Context) (*domain.Analysis, error) {
	return f.analysis, f.analyzeErr
}

func (f *fakeService) Domains(context.Context) ([]domain.ClusterGroup, error) {
	return f.groups, f.domainsErr
}

func (f *fakeService) Members(_ context.Context, id int) ([]domain.Record, error) {
	if f.domainsErr != nil {
		return nil, f.domainsErr
	}
	for _, g := range f.groups {
		if g.Cluster == id {
			return g.Records, nil
		}
	}
	return nil, domain.ErrNotFound
}

func newTestRouter(svc domain.AnalysisService) (*gin.Engine, *metrics.Metrics) {
	gin.SetMode(gin.TestMode)
	m := metrics.New(false)
	return NewRouter(RouterConfig{Handler: NewHandler(svc, 1<<20), Metrics: m, Origins: []string{"*"}}), m
}

func do(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error
}

func TestRootAndHealth(t *testing.T) {
	r, _ := newTestRouter(&fakeService{})

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gapscan backend running")

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestUpload(t *testing.T) {
	svc := &fakeService{}
	r, _ := newTestRouter(svc)

	w := do(t, r, uploadRequest(t, "papers.csv", "id,title,abstract\n1,A,first\n2,B,second\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"Data ingested successfully","rows":2}`, w.Body.String())
	require.Len(t, svc.ingested, 2)
	assert.Equal(t, "second", svc.ingested[1].Abstract)
}

func TestUpload_DuringAnalysis(t *testing.T) {
	r, _ := newTestRouter(&fakeService{ingestErr: domain.ErrAnalysisInProgress})

	w := do(t, r, uploadRequest(t, "papers.csv", "id,title,abstract\n1,A,first\n"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "analysis_in_progress", decodeError(t, w).Code)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		contains string
	}{
		{"not csv", func(t *testing.T) *http.Request { return uploadRequest(t, "papers.txt", "id,title,abstract\n1,a,b\n") }, "only CSV"},
		{"missing column", func(t *testing.T) *http.Request { return uploadRequest(t, "p.csv", "id,abstract\n1,b\n") }, "title"},
		{"empty abstract", func(t *testing.T) *http.Request { return uploadRequest(t, "p.csv", "id,title,abstract\n1,a,\n") }, "empty abstract"},
		{"no file", func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodPost, "/upload", nil) }, "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(&fakeService{})
			w := do(t, r, tt.req(t))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			e := decodeError(t, w)
			assert.Equal(t, "validation", e.Code)
			assert.Contains(t, e.Message, tt.contains)
		})
	}
}

func TestAnalyze(t *testing.T) {
	svc := &fakeService{analysis: &domain.Analysis{
		RunID:          "run-1",
		TotalProcessed: 3,
		GapThreshold:   2,
		Policy:         "adaptive",
		Domains: []domain.DomainInsight{
			{ClusterID: 0, Name: "Domain 0", Size: 3, DensityScore: 1, RepresentativeTerms: []string{"A"}},
		},
	}}
	r, _ := newTestRouter(svc)

	for _, body := range []string{"", `{"trigger":"run"}`} {
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := do(t, r, req)
		require.Equal(t, http.StatusOK, w.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 3.0, got["total_processed"])
		domains := got["domains"].([]any)
		require.Len(t, domains, 1)
		assert.Equal(t, "Domain 0", domains[0].(map[string]any)["name"])
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{bad"))
	w := do(t, r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrEmptyCorpus, http.StatusBadRequest, "empty_corpus"},
		{&domain.UpstreamError{Stage: "embed", Err: errors.New("timeout")}, http.StatusBadGateway, "upstream"},
		{domain.ErrAnalysisInProgress, http.StatusConflict, "analysis_in_progress"},
		{fmt.Errorf("load: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "canceled"},
		{errors.New("disk full"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			r, _ := newTestRouter(&fakeService{analyzeErr: tt.err})
			w := do(t, r, httptest.NewRequest(http.MethodPost, "/analyze", nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestDomains(t *testing.T) {
	svc := &fakeService{groups: []domain.ClusterGroup{
		{Cluster: -1, Records: []domain.Record{{ID: "3", Abstract: "lonely"}}},
		{Cluster: 0, Records: []domain.Record{{ID: "1", Abstract: "x"}, {ID: "2", Abstract: "y"}}},
	}}
	r, _ := newTestRouter(svc)

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/domains", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"-1":["lonely"],"0":["x","y"]}`, w.Body.String())

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/domains/0", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var g domain.ClusterGroup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Equal(t, 0, g.Cluster)
	assert.Len(t, g.Records, 2)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/domains/7", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/domains/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDomains_NotAnalyzed(t *testing.T) {
	r, _ := newTestRouter(&fakeService{domainsErr: domain.ErrNotAnalyzed})

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/domains", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Run /analyze first", decodeError(t, w).Message)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/domains/0", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(&fakeService{})
	do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gapscan_http_requests_total{method="GET",path="/health",status_code="200"} 1`)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		origins []string
		origin  string
		want    string
	}{
		{[]string{"*"}, "http://other.test", "*"},
		{[]string{"http://localhost:3000"}, "http://localhost:3000", "http://localhost:3000"},
		{[]string{"http://localhost:3000"}, "http://evil.test", ""},
	} {
		r := NewRouter(RouterConfig{Handler: NewHandler(&fakeService{}, 0), Origins: tc.origins})
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tc.origin)
		w := do(t, r, req)
		assert.Equal(t, tc.want, w.Header().Get("Access-Control-Allow-Origin"), tc.origin)
	}
}

func TestServerRunShutsDownOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(Config{Host: "127.0.0.1", Port: 0}, &fakeService{}, nil, nil)
	assert.Equal(t, "127.0.0.1:0", s.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
