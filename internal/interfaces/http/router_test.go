package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"repo-search-web/internal/application"
	"repo-search-web/internal/domain/models"
	"repo-search-web/internal/domain/services"
	"repo-search-web/internal/infrastructure/greptile"
	"repo-search-web/internal/interfaces/http/handlers"
	"repo-search-web/pkg/config"
	"repo-search-web/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func intPtr(v int) *int { return &v }

type stubSearcher struct {
	records []models.MatchRecord
	err     error
	last    models.SearchRequest
}

func (s *stubSearcher) Search(_ context.Context, query string, repos []models.RepoDescriptor, sessionID string) ([]models.MatchRecord, error) {
	s.last = models.SearchRequest{Query: query, Repositories: repos, SessionID: sessionID}
	return s.records, s.err
}

func newTestRouter(t *testing.T, searcher application.Searcher) *gin.Engine {
	t.Helper()
	svc, err := application.NewSearchService(searcher, application.Options{SessionLimit: 16, Policy: services.LastWins})
	require.NoError(t, err)
	router, err := NewRouter(svc)
	require.NoError(t, err)
	return router
}

func sampleRecords() []models.MatchRecord {
	return []models.MatchRecord{
		{Repository: "r", Remote: "github", Branch: "main", Filepath: "lib/a.ts", LineStart: intPtr(1), LineEnd: intPtr(5), Summary: "x"},
		{Repository: "r", Remote: "github", Branch: "main", Filepath: "lib/b.ts", Summary: "y"},
	}
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validBody = `{"query":"llamas","repositories":[{"remote":"github","branch":"main","repository":"meta-llama/llama3"}],"sessionId":"session-1"}`

func TestSearchAPIReturnsFlatRecords(t *testing.T) {
	searcher := &stubSearcher{records: sampleRecords()}
	router := newTestRouter(t, searcher)

	w := postJSON(router, "/api/search", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var records []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "lib/a.ts", records[0]["filepath"])
	assert.Equal(t, float64(1), records[0]["linestart"])
	assert.Nil(t, records[1]["linestart"])
	assert.Contains(t, records[1], "lineend")

	assert.Equal(t, "session-1", searcher.last.SessionID)
	assert.Equal(t, "meta-llama/llama3", searcher.last.Repositories[0].Repository)
}

func TestSearchAPIEmptyResultIsArray(t *testing.T) {
	router := newTestRouter(t, &stubSearcher{})

	w := postJSON(router, "/api/search", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSearchAPIErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
		kind   types.ErrorKind
	}{
		{"upstream", &types.UpstreamError{StatusCode: 500}, validBody, http.StatusInternalServerError, types.KindUpstream},
		{"parse", &types.ParseError{Err: assert.AnError}, validBody, http.StatusInternalServerError, types.KindParse},
		{"malformed json", nil, `{"query":`, http.StatusBadRequest, types.KindValidation},
		{"missing session", nil, `{"query":"q","repositories":[{"remote":"github","branch":"main","repository":"a/b"}]}`, http.StatusBadRequest, types.KindValidation},
		{"bad repository", nil, `{"query":"q","repositories":[{"remote":"github","branch":"main","repository":"a/b/c"}],"sessionId":"s"}`, http.StatusBadRequest, types.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubSearcher{err: tt.err})

			w := postJSON(router, "/api/search", tt.body)
			require.Equal(t, tt.status, w.Code)

			var envelope struct {
				Error string          `json:"error"`
				Kind  types.ErrorKind `json:"kind"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.NotEmpty(t, envelope.Error)
			assert.Equal(t, tt.kind, envelope.Kind)
		})
	}
}

func TestSearchAPIEndToEndWithUpstream500(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	client := greptile.NewClient(config.SearchConfig{Endpoint: upstream.URL, APIToken: "t", GithubToken: "g", Timeout: "2s"})
	router := newTestRouter(t, client)

	w := postJSON(router, "/api/search", validBody)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"HTTP Error: 500","kind":"upstream"}`, w.Body.String())
}

func TestSearchTreeAPI(t *testing.T) {
	router := newTestRouter(t, &stubSearcher{records: sampleRecords()})

	w := postJSON(router, "/api/search/tree", validBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Records []models.MatchRecord `json:"records"`
		Tree    []models.NodeView    `json:"tree"`
		Nodes   int                  `json:"nodes"`
		Leaves  int                  `json:"leaves"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 2)
	assert.Equal(t, 3, resp.Nodes)
	assert.Equal(t, 2, resp.Leaves)
	require.Len(t, resp.Tree, 1)
	assert.Equal(t, "lib", resp.Tree[0].Name)
	assert.Equal(t, models.KindBranch, resp.Tree[0].Kind)
	require.Len(t, resp.Tree[0].Children, 2)
	assert.Equal(t, "lib/a.ts", resp.Tree[0].Children[0].Path)
	assert.Equal(t, "x", resp.Tree[0].Children[0].Match.Summary)
}

func TestIndexPage(t *testing.T) {
	router := newTestRouter(t, &stubSearcher{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/search"`)
	assert.Contains(t, w.Body.String(), "meta-llama/llama3")
}

func TestSearchPageRendersTree(t *testing.T) {
	searcher := &stubSearcher{records: sampleRecords()}
	router := newTestRouter(t, searcher)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=llamas&repo=https://github.com/meta-llama/llama3", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `class="branch" data-path="lib"`)
	assert.Contains(t, body, `data-path="lib/a.ts"`)
	assert.Contains(t, body, `data-path="lib/b.ts"`)
	assert.Contains(t, body, "L1-5")
	assert.Less(t, strings.Index(body, "lib/a.ts"), strings.Index(body, "lib/b.ts"))

	assert.Equal(t, "meta-llama/llama3", searcher.last.Repositories[0].Repository)
	assert.True(t, strings.HasPrefix(searcher.last.SessionID, "session-"))

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == handlers.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, searcher.last.SessionID, cookie.Value)
}

func TestSearchPageReusesSessionCookie(t *testing.T) {
	searcher := &stubSearcher{records: sampleRecords()}
	router := newTestRouter(t, searcher)

	req := httptest.NewRequest(http.MethodGet, "/search?q=llamas&repo=a/b", nil)
	req.AddCookie(&http.Cookie{Name: handlers.SessionCookie, Value: "session-existing"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session-existing", searcher.last.SessionID)
}

func TestSearchPageErrors(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		err    error
		status int
	}{
		{"missing keyword", "/search?q=&repo=a/b", nil, http.StatusBadRequest},
		{"invalid repo", "/search?q=x&repo=not-a-repo", nil, http.StatusBadRequest},
		{"upstream failure", "/search?q=x&repo=a/b", &types.UpstreamError{StatusCode: 404}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubSearcher{records: sampleRecords(), err: tt.err})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.Equal(t, tt.status, w.Code)

			body := w.Body.String()
			assert.Contains(t, body, `class="error"`)
			assert.NotContains(t, body, `class="tree"`)
		})
	}
}

func TestSearchPageNoResults(t *testing.T) {
	router := newTestRouter(t, &stubSearcher{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=x&repo=a/b", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="error"`)
	assert.NotContains(t, w.Body.String(), `class="tree"`)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &stubSearcher{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSupersededSearchReturnsConflict(t *testing.T) {
	started := make(chan struct{})
	blocking := &blockingSearcher{started: started}
	router := newTestRouter(t, blocking)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- postJSON(router, "/api/search", validBody)
	}()

	<-started
	blocking.fast = true
	w := postJSON(router, "/api/search", validBody)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case old := <-done:
		assert.Equal(t, http.StatusConflict, old.Code)
		assert.Contains(t, old.Body.String(), `"kind":"superseded"`)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request did not return")
	}
}

type blockingSearcher struct {
	started chan struct{}
	fast    bool
}

func (b *blockingSearcher) Search(ctx context.Context, _ string, _ []models.RepoDescriptor, _ string) ([]models.MatchRecord, error) {
	if b.fast {
		return []models.MatchRecord{}, nil
	}
	close(b.started)
	<-ctx.Done()
	return nil, &types.TransportError{Err: ctx.Err()}
}

func TestSearchPageShowsBranchMatchAndDuplicates(t *testing.T) {
	searcher := &stubSearcher{records: []models.MatchRecord{
		{Repository: "r", Remote: "github", Branch: "main", Filepath: "lib", Summary: "directory hit"},
		{Repository: "r", Remote: "github", Branch: "main", Filepath: "lib/a.ts", LineStart: intPtr(3), LineEnd: intPtr(3), Summary: "first"},
		{Repository: "other", Remote: "github", Branch: "dev", Filepath: "lib/a.ts", Summary: "second"},
	}}
	router := newTestRouter(t, searcher)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=llamas&repo=a/b", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `class="branch" data-path="lib"`)
	assert.Contains(t, body, "directory hit")
	assert.Contains(t, body, "2 matches")
	assert.Contains(t, body, "first")
	assert.Contains(t, body, "second")
	assert.Contains(t, body, "L3")
}
