//go:build unit

package service

import (
	"context"
	"go-taxonomy-service/internal/data"
	"strings"
	"testing"
)

// mockPostRepository is a mock implementation of the PostRepository interface.
type mockPostRepository struct {
	errToReturn error

	createPostCalled     bool
	linkCategoriesCalled bool
	lastPostPassed       *data.Post
	lastLinkedCategories []int64
}

var _ PostRepository = (*mockPostRepository)(nil)

func (m *mockPostRepository) CreatePost(ctx context.Context, post *data.Post) error {
	m.createPostCalled = true
	m.lastPostPassed = post
	return m.errToReturn
}

func (m *mockPostRepository) GetByID(ctx context.Context, id int64) (*data.Post, error) {
	if m.lastPostPassed != nil && m.lastPostPassed.ID == id {
		return m.lastPostPassed, nil
	}
	return nil, nil
}

func (m *mockPostRepository) GetByCategoryID(ctx context.Context, categoryID int64) ([]*data.Post, error) {
	return []*data.Post{}, nil
}

func (m *mockPostRepository) LinkCategories(ctx context.Context, postID int64, categoryIDs []int64) error {
	m.linkCategoriesCalled = true
	m.lastLinkedCategories = categoryIDs
	return m.errToReturn
}

// mockTagRepository is a mock implementation of the TagRepository interface.
type mockTagRepository struct {
	upsertedTitles []string
	linkedTagIDs   []int64
}

var _ TagRepository = (*mockTagRepository)(nil)

func (m *mockTagRepository) Upsert(ctx context.Context, id int64, title string) (int64, error) {
	m.upsertedTitles = append(m.upsertedTitles, strings.ToLower(strings.TrimSpace(title)))
	return id, nil
}

func (m *mockTagRepository) LinkPost(ctx context.Context, postID int64, tagIDs []int64) error {
	m.linkedTagIDs = tagIDs
	return nil
}

func (m *mockTagRepository) GetByPostID(ctx context.Context, postID int64) ([]*data.Tag, error) {
	return []*data.Tag{}, nil
}

func newTestPostService(t *testing.T) (*PostService, *mockPostRepository, *mockTagRepository, func()) {
	t.Helper()
	categoryRepo := newMockCategoryRepository()
	testCache, teardown := newTestCache(t)
	taxonomy := NewTaxonomyService(categoryRepo, &mockIDGenerator{next: 1000}, testCache)

	postRepo := &mockPostRepository{}
	tagRepo := &mockTagRepository{}
	svc := NewPostService(postRepo, tagRepo, taxonomy, &mockIDGenerator{next: 5000})
	return svc, postRepo, tagRepo, teardown
}

func TestPostService_PublishPost(t *testing.T) {
	svc, postRepo, tagRepo, teardown := newTestPostService(t)
	defer teardown()

	post, err := svc.PublishPost(context.Background(),
		"Intro to JDBC",
		`<p>fine</p><script>alert("xss")</script>`,
		2,
		[]string{"java", "spring", "jdbc"},
		[]string{"Databases", " java "})
	if err != nil {
		t.Fatalf("PublishPost failed: %v", err)
	}

	if !postRepo.createPostCalled {
		t.Fatal("expected CreatePost to be called")
	}
	if strings.Contains(postRepo.lastPostPassed.Content, "script") {
		t.Errorf("expected content to be sanitized, got '%s'", postRepo.lastPostPassed.Content)
	}
	if !strings.Contains(postRepo.lastPostPassed.Content, "<p>fine</p>") {
		t.Errorf("expected safe markup to survive, got '%s'", postRepo.lastPostPassed.Content)
	}
	if post.CategoryID == nil {
		t.Fatal("expected the post to reference its leaf category")
	}

	// The post is linked to the whole resolved path, root to leaf.
	if !postRepo.linkCategoriesCalled {
		t.Fatal("expected LinkCategories to be called")
	}
	if len(postRepo.lastLinkedCategories) != 3 {
		t.Errorf("expected 3 category links, got %d", len(postRepo.lastLinkedCategories))
	}
	if postRepo.lastLinkedCategories[len(postRepo.lastLinkedCategories)-1] != *post.CategoryID {
		t.Errorf("expected the last link to be the leaf %d, got %v", *post.CategoryID, postRepo.lastLinkedCategories)
	}

	if len(tagRepo.upsertedTitles) != 2 {
		t.Errorf("expected 2 tags upserted, got %v", tagRepo.upsertedTitles)
	}
	if len(tagRepo.linkedTagIDs) != 2 {
		t.Errorf("expected 2 tags linked, got %v", tagRepo.linkedTagIDs)
	}
}

func TestPostService_PublishPost_NoCategories(t *testing.T) {
	svc, postRepo, tagRepo, teardown := newTestPostService(t)
	defer teardown()

	post, err := svc.PublishPost(context.Background(), "Untitled musings", "hello", 2, nil, nil)
	if err != nil {
		t.Fatalf("PublishPost failed: %v", err)
	}

	if post.CategoryID != nil {
		t.Errorf("expected no category reference, got %d", *post.CategoryID)
	}
	if postRepo.linkCategoriesCalled {
		t.Error("expected no category links for an uncategorized post")
	}
	if len(tagRepo.upsertedTitles) != 0 {
		t.Errorf("expected no tags, got %v", tagRepo.upsertedTitles)
	}
}

func TestPostService_PublishPost_SkipsBlankTags(t *testing.T) {
	svc, _, tagRepo, teardown := newTestPostService(t)
	defer teardown()

	_, err := svc.PublishPost(context.Background(), "Tagged", "hello", 2, nil, []string{"go", "   ", ""})
	if err != nil {
		t.Fatalf("PublishPost failed: %v", err)
	}
	if len(tagRepo.upsertedTitles) != 1 || tagRepo.upsertedTitles[0] != "go" {
		t.Errorf("expected only 'go' upserted, got %v", tagRepo.upsertedTitles)
	}
}
