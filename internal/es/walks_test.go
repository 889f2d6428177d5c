package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/nz_walks/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	docs     map[string]WalkDocument
	searches []map[string]any
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodPut:
		var doc WalkDocument
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.docs[parts[2]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := f.docs[parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(f.docs, parts[2])
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	case len(parts) == 2 && parts[1] == "_search":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.searches = append(f.searches, body)

		type hit struct {
			Source WalkDocument `json:"_source"`
		}
		var hits []hit
		for _, d := range f.docs {
			hits = append(hits, hit{Source: d})
		}
		resp := map[string]any{"hits": map[string]any{"total": map[string]any{"value": len(hits)}, "hits": hits}}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func newTestIndex(t *testing.T) (*WalkIndex, *fakeES) {
	t.Helper()

	fake := &fakeES{docs: map[string]WalkDocument{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)
	return &WalkIndex{Client: client, Index: "walks"}, fake
}

func TestWalkIndex_IndexSearchDelete(t *testing.T) {
	t.Parallel()

	idx, fake := newTestIndex(t)
	ctx := context.Background()

	walk := models.Walk{
		ID:          uuid.New(),
		Name:        "Coast Track",
		Description: "Beach views",
		LengthInKm:  12,
		Region:      models.Region{Name: "Northland"},
		Difficulty:  models.Difficulty{Name: "Easy"},
	}
	require.NoError(t, idx.IndexWalk(ctx, walk))
	require.Contains(t, fake.docs, walk.ID.String())
	assert.Equal(t, "Northland", fake.docs[walk.ID.String()].Region)

	total, docs, err := idx.SearchWalks(ctx, "coast", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "Coast Track", docs[0].Name)

	require.Len(t, fake.searches, 1)
	assert.EqualValues(t, 10, fake.searches[0]["size"])

	require.NoError(t, idx.DeleteWalk(ctx, walk.ID.String()))
	require.NoError(t, idx.DeleteWalk(ctx, walk.ID.String()))
	assert.Empty(t, fake.docs)
}

func TestPing(t *testing.T) {
	t.Parallel()

	idx, _ := newTestIndex(t)
	require.NoError(t, Ping(context.Background(), idx.Client))
}

func TestWalkIndex_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)
	idx := &WalkIndex{Client: client, Index: "walks"}

	_, _, err = idx.SearchWalks(context.Background(), "x", 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
