package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/platform/database/dbtest"
	platformElasticsearch "launchpad_backend/internal/platform/elasticsearch"
	"launchpad_backend/internal/product"
	"launchpad_backend/internal/user"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeTransport answers Elasticsearch calls in process.
type fakeTransport struct {
	mu       sync.Mutex
	requests []recordedRequest
	handle   func(req recordedRequest) (int, string)
}

func (f *fakeTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	status, payload := f.handle(rec)
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(payload)),
		Request:    r,
	}, nil
}

func (f *fakeTransport) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newFakeClient(t *testing.T, handle func(req recordedRequest) (int, string)) (*platformElasticsearch.ESClientWrapper, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{handle: handle}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: transport,
	})
	require.NoError(t, err)
	return &platformElasticsearch.ESClientWrapper{Client: client}, transport
}

type searchEnv struct {
	products product.Repository
	owner    *user.User
}

func newSearchEnv(t *testing.T) *searchEnv {
	t.Helper()
	db := dbtest.New(t, &user.User{}, &product.Product{}, &product.Upvote{})
	users := user.NewGORMRepository(db)
	owner := &user.User{FirebaseUID: "fb-alice", Username: "alice", Email: "alice@example.com", Role: common.RoleUser}
	require.NoError(t, users.Create(context.Background(), owner))
	return &searchEnv{products: product.NewGORMRepository(db), owner: owner}
}

func (e *searchEnv) insert(t *testing.T, slug string, status product.Status, mods ...func(*product.Product)) *product.Product {
	t.Helper()
	p := &product.Product{
		Slug:             slug,
		UserID:           e.owner.ID,
		Username:         e.owner.Username,
		Name:             slug,
		ShortDescription: "pitch",
		Description:      "desc",
		Category:         "productivity",
		Tags:             product.Tags{},
		WebsiteURL:       "https://example.com",
		Status:           status,
	}
	for _, mod := range mods {
		mod(p)
	}
	require.NoError(t, e.products.Create(context.Background(), p))
	return p
}

func TestToDocument(t *testing.T) {
	until := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	p := &product.Product{
		Slug:          "rocket-notes",
		Name:          "Rocket Notes",
		Description:   "<p>Fast <b>notes</b> &amp; more</p>\n<p>Second   line</p>",
		Tags:          product.Tags{"notes"},
		Status:        product.StatusPublished,
		Featured:      false,
		FeaturedUntil: &until,
	}
	p.ID = uuid.New()

	doc, err := ToDocument(p)
	require.NoError(t, err)
	assert.Equal(t, p.ID.String(), doc.ID)
	assert.Equal(t, "Fast notes & more Second line", doc.Description)
	assert.Equal(t, []string{"notes"}, doc.Tags)
	assert.Nil(t, doc.FeaturedUntil, "a cleared featured flag is not indexed")

	_, err = ToDocument(nil)
	assert.Error(t, err)
}

func TestNewIndexer_DisabledIsNop(t *testing.T) {
	idx := NewIndexer(nil, &config.Config{}, zap.NewNop())
	assert.IsType(t, NopIndexer{}, idx)
	assert.NoError(t, idx.SyncProduct(context.Background(), &product.Product{}))
	assert.NoError(t, idx.DeleteProduct(context.Background(), uuid.New()))
}

func TestIndexer_SyncProduct(t *testing.T) {
	client, transport := newFakeClient(t, func(req recordedRequest) (int, string) {
		if req.Method == http.MethodDelete {
			return http.StatusNotFound, `{"result":"not_found"}`
		}
		return http.StatusCreated, `{"result":"created"}`
	})
	idx := NewESIndexer(client, "products", zap.NewNop())
	ctx := context.Background()

	published := &product.Product{Name: "Rocket", Status: product.StatusPublished}
	published.ID = uuid.New()
	require.NoError(t, idx.SyncProduct(ctx, published))

	suspended := &product.Product{Name: "Gone", Status: product.StatusSuspended}
	suspended.ID = uuid.New()
	require.NoError(t, idx.SyncProduct(ctx, suspended), "missing documents are fine")

	reqs := transport.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/products/_doc/"+published.ID.String(), reqs[0].Path)
	assert.Contains(t, reqs[0].Body, `"name":"Rocket"`)
	assert.Equal(t, http.MethodDelete, reqs[1].Method)
	assert.Equal(t, "/products/_doc/"+suspended.ID.String(), reqs[1].Path)
}

func TestIndexer_SyncProductError(t *testing.T) {
	client, _ := newFakeClient(t, func(recordedRequest) (int, string) {
		return http.StatusBadRequest, `{"error":{"type":"mapper_parsing_exception"}}`
	})
	idx := NewESIndexer(client, "products", zap.NewNop())
	p := &product.Product{Status: product.StatusPublished}
	p.ID = uuid.New()

	err := idx.SyncProduct(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

// bulkEcho acknowledges every action line of a bulk body.
func bulkEcho(body string) string {
	var items []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		var action map[string]json.RawMessage
		if json.Unmarshal(scanner.Bytes(), &action) != nil {
			continue
		}
		if _, ok := action["index"]; ok {
			items = append(items, `{"index":{"status":201}}`)
			scanner.Scan()
		} else if _, ok := action["delete"]; ok {
			items = append(items, `{"delete":{"status":404,"result":"not_found"}}`)
		}
	}
	return fmt.Sprintf(`{"errors":false,"items":[%s]}`, strings.Join(items, ","))
}

func TestIndexer_Reindex(t *testing.T) {
	env := newSearchEnv(t)
	env.insert(t, "one", product.StatusPublished)
	env.insert(t, "two", product.StatusPublished)
	env.insert(t, "three", product.StatusDraft)

	client, transport := newFakeClient(t, func(req recordedRequest) (int, string) {
		return http.StatusOK, bulkEcho(req.Body)
	})
	idx := NewESIndexer(client, "products", zap.NewNop())

	stats, err := idx.Reindex(context.Background(), env.products, 2, "wait_for")
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Batches: 2, Indexed: 2, Removed: 1}, stats)

	reqs := transport.recorded()
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Equal(t, "/_bulk", r.Path)
	}
}

func TestIndexer_ReindexCountsItemFailures(t *testing.T) {
	env := newSearchEnv(t)
	env.insert(t, "one", product.StatusPublished)

	client, _ := newFakeClient(t, func(recordedRequest) (int, string) {
		return http.StatusOK, `{"errors":true,"items":[{"index":{"status":400,"error":{"type":"mapper_parsing_exception"}}}]}`
	})
	stats, err := NewESIndexer(client, "products", zap.NewNop()).Reindex(context.Background(), env.products, 10, "false")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Indexed)
}

func TestSearch_UsesIndexRanking(t *testing.T) {
	env := newSearchEnv(t)
	first := env.insert(t, "first", product.StatusPublished)
	second := env.insert(t, "second", product.StatusPublished)
	hidden := env.insert(t, "hidden", product.StatusSubmitted)

	client, transport := newFakeClient(t, func(recordedRequest) (int, string) {
		return http.StatusOK, fmt.Sprintf(`{"hits":{"total":{"value":3},"hits":[{"_id":%q},{"_id":%q},{"_id":%q}]}}`,
			second.ID, hidden.ID, first.ID)
	})
	svc := NewService(client, env.products, &config.Config{ProductsIndex: "launchpad-products"}, zap.NewNop())

	found, pagination, err := svc.Search(context.Background(), Query{Q: "  rocket ", Category: "productivity", Tag: "AI", PageSize: 5, Page: 2})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, second.ID, found[0].ID)
	assert.Equal(t, first.ID, found[1].ID)
	assert.Equal(t, int64(3), pagination.TotalItems)
	assert.Equal(t, 2, pagination.CurrentPage)

	reqs := transport.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/launchpad-products/_search", reqs[0].Path)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &body))
	assert.EqualValues(t, 5, body["from"])
	assert.EqualValues(t, 5, body["size"])
	assert.Contains(t, reqs[0].Body, `"query":"rocket"`)
	assert.Contains(t, reqs[0].Body, `{"term":{"category":"productivity"}}`)
	assert.Contains(t, reqs[0].Body, `{"term":{"tags":"ai"}}`)
	assert.Contains(t, reqs[0].Body, `{"term":{"status":"published"}}`)
}

func TestSearch_FallsBackToDatabase(t *testing.T) {
	env := newSearchEnv(t)
	env.insert(t, "rocket-notes", product.StatusPublished, func(p *product.Product) { p.Name = "Rocket Notes" })
	env.insert(t, "other", product.StatusPublished)

	t.Run("index disabled", func(t *testing.T) {
		svc := NewService(nil, env.products, &config.Config{}, zap.NewNop())
		found, _, err := svc.Search(context.Background(), Query{Q: "rocket"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "rocket-notes", found[0].Slug)
	})

	t.Run("index failing", func(t *testing.T) {
		client, _ := newFakeClient(t, func(recordedRequest) (int, string) {
			return http.StatusBadRequest, `{"error":"index_not_found_exception"}`
		})
		svc := NewService(client, env.products, &config.Config{}, zap.NewNop())
		found, _, err := svc.Search(context.Background(), Query{Q: "rocket"})
		require.NoError(t, err)
		require.Len(t, found, 1)
	})
}

func TestSearch_TagMatchesListingNormalization(t *testing.T) {
	env := newSearchEnv(t)
	env.insert(t, "rocket-tools", product.StatusPublished, func(p *product.Product) {
		p.Name = "Rocket Tools"
		p.Tags = product.Tags{"dev-tools"}
	})
	env.insert(t, "rocket-notes", product.StatusPublished, func(p *product.Product) { p.Name = "Rocket Notes" })

	svc := NewService(nil, env.products, &config.Config{}, zap.NewNop())
	found, _, err := svc.Search(context.Background(), Query{Q: "rocket", Tag: " Dev Tools "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "rocket-tools", found[0].Slug)

	listed, _, err := env.products.ListPublished(context.Background(), product.ListQuery{Tag: slug.Make("Dev Tools")})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, found[0].ID, listed[0].ID)
}

func TestSearch_ValidatesQuery(t *testing.T) {
	svc := NewService(nil, newSearchEnv(t).products, &config.Config{}, zap.NewNop())

	_, _, err := svc.Search(context.Background(), Query{Q: "   "})
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, _, err = svc.Search(context.Background(), Query{Q: strings.Repeat("a", maxQueryLength+1)})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestHandler_Search(t *testing.T) {
	env := newSearchEnv(t)
	env.insert(t, "rocket-notes", product.StatusPublished, func(p *product.Product) { p.Name = "Rocket Notes" })

	gin.SetMode(gin.TestMode)
	router := gin.New()
	svc := NewService(nil, env.products, &config.Config{}, zap.NewNop())
	NewHandler(svc, clock.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)), zap.NewNop()).RegisterRoutes(router.Group("/api"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/search?q=rocket", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data       []product.ProductResponse `json:"data"`
		Pagination common.Pagination         `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "rocket-notes", resp.Data[0].Slug)
	assert.Equal(t, int64(1), resp.Pagination.TotalItems)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/search", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
