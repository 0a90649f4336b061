//go:build integration

package handler

import (
	"bytes"
	"encoding/json"
	"go-taxonomy-service/internal/cache"
	"go-taxonomy-service/internal/config"
	"go-taxonomy-service/internal/data"
	"go-taxonomy-service/internal/logger"
	"go-taxonomy-service/internal/middleware"
	"go-taxonomy-service/internal/service"
	"go-taxonomy-service/internal/snowflake"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type testApp struct {
	Router    *chi.Mux
	Generator *snowflake.Generator
}

// setupTest initializes a full application stack for testing.
func setupTest(t *testing.T) (*testApp, func()) {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", "file::memory:")
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(1)

	// Manually apply migrations.
	schema1, err := os.ReadFile("../../migrations/001_create_categories.up.sql")
	if err != nil {
		t.Fatalf("Failed to read categories migration: %v", err)
	}
	db.MustExec(string(schema1))
	schema2, err := os.ReadFile("../../migrations/002_create_posts_and_tags.up.sql")
	if err != nil {
		t.Fatalf("Failed to read posts migration: %v", err)
	}
	db.MustExec(string(schema2))

	// Init layers.
	testCache, err := cache.New(config.CacheConfig{FilePath: "file::memory:"})
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	generator, err := snowflake.New(1)
	if err != nil {
		t.Fatalf("Failed to create snowflake generator: %v", err)
	}
	log := logger.New(config.LogConfig{Level: "error", Format: "console"}, io.Discard)

	categoryRepo := data.NewCategoryRepository(db)
	postRepo := data.NewPostRepository(db)
	tagRepo := data.NewTagRepository(db)
	taxonomyService := service.NewTaxonomyService(categoryRepo, generator, testCache)
	postService := service.NewPostService(postRepo, tagRepo, taxonomyService, generator)

	router := NewRouter(
		NewCategoryHandler(taxonomyService, log),
		NewPostHandler(postService, log),
		NewIDHandler(generator),
		middleware.Error(log),
	)

	teardown := func() {
		testCache.Close()
		db.Close()
	}

	return &testApp{Router: router, Generator: generator}, teardown
}

// doJSON performs a request with an optional JSON body and decodes the JSON
// response into out.
func doJSON(t *testing.T, router *chi.Mux, method, target string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func TestResolveEndpoint(t *testing.T) {
	app, teardown := setupTest(t)
	defer teardown()

	var resolved struct {
		LeafID *int64 `json:"leaf_id"`
	}
	rec := doJSON(t, app.Router, http.MethodPost, "/api/categories/resolve",
		map[string]interface{}{"path": []string{"technology", "ai", "machine-learning"}, "owner_id": 2},
		&resolved)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resolved.LeafID == nil {
		t.Fatal("expected a leaf id, got null")
	}

	// Resolving again returns the same leaf.
	var again struct {
		LeafID *int64 `json:"leaf_id"`
	}
	doJSON(t, app.Router, http.MethodPost, "/api/categories/resolve",
		map[string]interface{}{"path": []string{"technology", "ai", "machine-learning"}, "owner_id": 2},
		&again)
	if again.LeafID == nil || *again.LeafID != *resolved.LeafID {
		t.Errorf("expected identical leaf ids, got %v and %v", resolved.LeafID, again.LeafID)
	}

	// An empty path is a no-op success with a null leaf.
	var empty struct {
		LeafID *int64 `json:"leaf_id"`
	}
	rec = doJSON(t, app.Router, http.MethodPost, "/api/categories/resolve",
		map[string]interface{}{"path": []string{}, "owner_id": 2},
		&empty)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty path, got %d", rec.Code)
	}
	if empty.LeafID != nil {
		t.Errorf("expected null leaf for empty path, got %d", *empty.LeafID)
	}
}

func TestCategoryReadEndpoints(t *testing.T) {
	app, teardown := setupTest(t)
	defer teardown()

	var resolved struct {
		LeafID *int64 `json:"leaf_id"`
	}
	doJSON(t, app.Router, http.MethodPost, "/api/categories/resolve",
		map[string]interface{}{"path": []string{"technology", "ai"}, "owner_id": 2},
		&resolved)
	if resolved.LeafID == nil {
		t.Fatal("expected a leaf id, got null")
	}

	var tree []map[string]interface{}
	rec := doJSON(t, app.Router, http.MethodGet, "/api/categories/tree", nil, &tree)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(tree) != 1 {
		t.Fatalf("expected 1 root in the tree, got %d", len(tree))
	}

	var category data.Category
	rec = doJSON(t, app.Router, http.MethodGet, "/api/categories/lookup?title=ai", nil, &category)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if category.ID != *resolved.LeafID || category.Level != 1 {
		t.Errorf("unexpected category: %+v", category)
	}

	var path []data.Category
	rec = doJSON(t, app.Router, http.MethodGet, "/api/categories/"+itoa(*resolved.LeafID)+"/path", nil, &path)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(path) != 2 || path[0].Title != "technology" || path[1].Title != "ai" {
		t.Errorf("unexpected path: %+v", path)
	}

	rec = doJSON(t, app.Router, http.MethodGet, "/api/categories/999999", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown category, got %d", rec.Code)
	}
}

func TestIDEndpoints(t *testing.T) {
	app, teardown := setupTest(t)
	defer teardown()

	var issued struct {
		ID int64 `json:"id"`
	}
	rec := doJSON(t, app.Router, http.MethodGet, "/api/ids/next", nil, &issued)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if issued.ID <= 0 {
		t.Fatalf("expected a positive id, got %d", issued.ID)
	}

	var decoded struct {
		MachineID int64 `json:"machine_id"`
		Timestamp int64 `json:"timestamp"`
	}
	rec = doJSON(t, app.Router, http.MethodGet, "/api/ids/"+itoa(issued.ID), nil, &decoded)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decoded.MachineID != 1 {
		t.Errorf("expected machine id 1, got %d", decoded.MachineID)
	}
	if decoded.Timestamp < snowflake.Epoch {
		t.Errorf("expected timestamp after the epoch, got %d", decoded.Timestamp)
	}
}

func TestPostEndpoints(t *testing.T) {
	app, teardown := setupTest(t)
	defer teardown()

	var created data.Post
	rec := doJSON(t, app.Router, http.MethodPost, "/api/posts/",
		map[string]interface{}{
			"title":         "Intro to Go",
			"content":       "<p>hello</p>",
			"owner_id":      2,
			"category_path": []string{"technology", "go"},
			"tags":          []string{"Go", "tutorial"},
		}, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if created.CategoryID == nil {
		t.Fatal("expected the post to reference its leaf category")
	}

	var fetched struct {
		Post data.Post  `json:"post"`
		Tags []data.Tag `json:"tags"`
	}
	rec = doJSON(t, app.Router, http.MethodGet, "/api/posts/"+itoa(created.ID), nil, &fetched)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fetched.Post.Title != "Intro to Go" {
		t.Errorf("unexpected post: %+v", fetched.Post)
	}
	if len(fetched.Tags) != 2 {
		t.Errorf("expected 2 tags, got %+v", fetched.Tags)
	}

	// A missing title is rejected before anything is stored.
	rec = doJSON(t, app.Router, http.MethodPost, "/api/posts/",
		map[string]interface{}{"content": "x", "owner_id": 2}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing title, got %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
