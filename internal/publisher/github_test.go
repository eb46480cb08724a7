package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub records the calls made against a minimal REST API surface
type fakeGitHub struct {
	mu          sync.Mutex
	branches    map[string]bool
	files       map[string]string // path@branch -> decoded content
	openPRs     map[string]int    // branch -> number
	merged      map[int]bool
	nextPR      int
	failPulls   int // status code to return from POST pulls, 0 = ok
	lastPRBody  map[string]interface{}
	authHeaders []string
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		branches: map[string]bool{"main": true},
		files:    map[string]string{},
		openPRs:  map[string]int{},
		merged:   map[int]bool{},
		nextPR:   41,
	}
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /repos/acme/blog/git/ref/heads/{branch}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if !f.branches[r.PathValue("branch")] {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"object": map[string]string{"sha": "base-sha"}})
	})

	mux.HandleFunc("POST /repos/acme/blog/git/refs", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		name := req["ref"][len("refs/heads/"):]

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.branches[name] {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Reference already exists"})
			return
		}
		f.branches[name] = true
		writeJSON(w, http.StatusCreated, map[string]string{"ref": req["ref"]})
	})

	mux.HandleFunc("GET /repos/acme/blog/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.files[r.PathValue("path")+"@"+r.URL.Query().Get("ref")]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"sha": "file-sha"})
	})

	mux.HandleFunc("PUT /repos/acme/blog/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		content, _ := base64.StdEncoding.DecodeString(req["content"])

		f.mu.Lock()
		defer f.mu.Unlock()
		key := r.PathValue("path") + "@" + req["branch"]
		if _, exists := f.files[key]; exists && req["sha"] != "file-sha" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "sha wasn't supplied"})
			return
		}
		f.files[key] = string(content)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"content": map[string]string{"sha": "file-sha"}})
	})

	mux.HandleFunc("POST /repos/acme/blog/pulls", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastPRBody = req
		if f.failPulls != 0 {
			writeJSON(w, f.failPulls, map[string]string{"message": "Server Error"})
			return
		}
		head := req["head"].(string)
		if _, open := f.openPRs[head]; open {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "A pull request already exists"})
			return
		}
		f.nextPR++
		f.openPRs[head] = f.nextPR
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"number":   f.nextPR,
			"html_url": "https://github.com/acme/blog/pull/" + itoa(f.nextPR),
		})
	})

	mux.HandleFunc("GET /repos/acme/blog/pulls", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		head := r.URL.Query().Get("head")
		var out []map[string]interface{}
		for branch, n := range f.openPRs {
			if "acme:"+branch == head {
				out = append(out, map[string]interface{}{"number": n, "html_url": "https://github.com/acme/blog/pull/" + itoa(n)})
			}
		}
		if out == nil {
			out = []map[string]interface{}{}
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /repos/acme/blog/pulls/{number}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.PathValue("number") {
		case "500":
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "Bad Gateway"})
		case "404":
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		default:
			n := 0
			for _, c := range r.PathValue("number") {
				n = n*10 + int(c-'0')
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"number": n, "merged": f.merged[n]})
		}
	})

	return mux
}

func (f *fakeGitHub) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestPublisher(t *testing.T, fake *fakeGitHub) *GitHubPublisher {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	p, err := NewGitHubPublisher(Settings{
		Token:        "ghp_test",
		Repo:         "acme/blog",
		BaseBranch:   "main",
		BranchPrefix: "nugget/",
		ContentDir:   "content/nuggets",
		APIURL:       server.URL + "/",
		HTTPClient:   server.Client(),
	}, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func testDocument() *models.GeneratedDocument {
	return &models.GeneratedDocument{
		Slug: "cache-invalidation-patterns",
		Frontmatter: models.Frontmatter{
			Title:    "Cache Invalidation Patterns",
			Summary:  "Write-through caches trade write latency for read consistency",
			ReadTime: "1 min",
			Tags:     []string{"caching"},
		},
		Body:    "body",
		Content: "---\ntitle: Cache Invalidation Patterns\n---\n\nbody\n",
	}
}

func TestOpenPullRequest(t *testing.T) {
	fake := newFakeGitHub()
	p := newTestPublisher(t, fake)

	ref, err := p.OpenPullRequest(context.Background(), testDocument(), "2024-03-06")
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.Equal(t, 42, ref.PRNumber)
	assert.Equal(t, "https://github.com/acme/blog/pull/42", ref.PRURL)
	assert.Equal(t, "nugget/cache-invalidation-patterns-2024-03-06", ref.BranchName)

	assert.True(t, fake.branches["nugget/cache-invalidation-patterns-2024-03-06"])
	assert.Equal(t, testDocument().Content,
		fake.files["content/nuggets/cache-invalidation-patterns.mdx@nugget/cache-invalidation-patterns-2024-03-06"])
	assert.Equal(t, "main", fake.lastPRBody["base"])
	assert.Equal(t, "Nugget: Cache Invalidation Patterns", fake.lastPRBody["title"])

	for _, h := range fake.authHeaders {
		assert.Equal(t, "Bearer ghp_test", h)
	}
}

func TestOpenPullRequest_RetrySameDay(t *testing.T) {
	fake := newFakeGitHub()
	p := newTestPublisher(t, fake)
	ctx := context.Background()

	first, err := p.OpenPullRequest(ctx, testDocument(), "2024-03-06")
	require.NoError(t, err)

	second, err := p.OpenPullRequest(ctx, testDocument(), "2024-03-06")
	require.NoError(t, err)

	assert.Equal(t, first.PRNumber, second.PRNumber)
	assert.Equal(t, first.BranchName, second.BranchName)
}

func TestOpenPullRequest_Failure(t *testing.T) {
	fake := newFakeGitHub()
	fake.failPulls = http.StatusInternalServerError
	p := newTestPublisher(t, fake)

	ref, err := p.OpenPullRequest(context.Background(), testDocument(), "2024-03-06")
	assert.Nil(t, ref)
	assert.ErrorIs(t, err, apperrors.ErrPublication)

	var up *apperrors.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, http.StatusInternalServerError, up.StatusCode)
	assert.Equal(t, "create pull request", up.Op)
}

func TestOpenPullRequest_MissingBaseBranch(t *testing.T) {
	fake := newFakeGitHub()
	delete(fake.branches, "main")
	p := newTestPublisher(t, fake)

	_, err := p.OpenPullRequest(context.Background(), testDocument(), "2024-03-06")
	assert.ErrorIs(t, err, apperrors.ErrPublication)
}

func TestCheckMergeStatus(t *testing.T) {
	fake := newFakeGitHub()
	fake.merged[7] = true
	p := newTestPublisher(t, fake)
	ctx := context.Background()

	merged, err := p.CheckMergeStatus(ctx, 7)
	require.NoError(t, err)
	assert.True(t, merged)

	merged, err = p.CheckMergeStatus(ctx, 8)
	require.NoError(t, err)
	assert.False(t, merged)

	_, err = p.CheckMergeStatus(ctx, 500)
	assert.ErrorIs(t, err, apperrors.ErrPublication)

	_, err = p.CheckMergeStatus(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrPublication)
}

func TestNewGitHubPublisher_Validation(t *testing.T) {
	_, err := NewGitHubPublisher(Settings{Repo: "acme/blog"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewGitHubPublisher(Settings{Token: "t", Repo: "blog"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestPathsAndBranches(t *testing.T) {
	p, err := NewGitHubPublisher(Settings{Token: "t", Repo: "acme/blog", ContentDir: "src/content/nuggets/", BranchPrefix: "ai/"}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "src/content/nuggets/x.mdx", p.ContentPath("x"))
	assert.Equal(t, "ai/x-2024-01-01", p.BranchName("x", "2024-01-01"))
}
