package service

import (
	"context"
	"go-taxonomy-service/internal/data"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// PostRepository defines the interface for database operations on posts.
type PostRepository interface {
	CreatePost(ctx context.Context, post *data.Post) error
	GetByID(ctx context.Context, id int64) (*data.Post, error)
	GetByCategoryID(ctx context.Context, categoryID int64) ([]*data.Post, error)
	LinkCategories(ctx context.Context, postID int64, categoryIDs []int64) error
}

// TagRepository defines the interface for database operations on tags.
type TagRepository interface {
	Upsert(ctx context.Context, id int64, title string) (int64, error)
	LinkPost(ctx context.Context, postID int64, tagIDs []int64) error
	GetByPostID(ctx context.Context, postID int64) ([]*data.Tag, error)
}

// PostService provides business logic for publishing posts with their
// category path and tags.
type PostService struct {
	posts     PostRepository
	tags      TagRepository
	taxonomy  *TaxonomyService
	ids       IDGenerator
	sanitizer *bluemonday.Policy
}

// NewPostService creates a new PostService with the given repositories.
func NewPostService(posts PostRepository, tags TagRepository, taxonomy *TaxonomyService, ids IDGenerator) *PostService {
	// UGCPolicy allows basic formatting like links, lists and bold while
	// stripping out dangerous HTML.
	return &PostService{
		posts:     posts,
		tags:      tags,
		taxonomy:  taxonomy,
		ids:       ids,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// PublishPost stores a new post. The category path is resolved to its leaf,
// which becomes the post's category reference; the post is additionally
// linked to every category along the resolved path, and to the given tags.
func (s *PostService) PublishPost(ctx context.Context, title, content string, ownerID int64, categoryPath, tagTitles []string) (*data.Post, error) {
	// Sanitize the user-provided content to prevent XSS attacks.
	sanitizedContent := s.sanitizer.Sanitize(content)

	leafID, err := s.taxonomy.ResolveHierarchy(ctx, categoryPath, ownerID)
	if err != nil {
		return nil, err
	}

	id, err := s.ids.Next()
	if err != nil {
		return nil, err
	}
	post := &data.Post{
		ID:         id,
		Title:      title,
		Content:    sanitizedContent,
		OwnerID:    ownerID,
		CategoryID: leafID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	if leafID != nil {
		path, err := s.taxonomy.GetCategoryPath(ctx, *leafID)
		if err != nil {
			return nil, err
		}
		categoryIDs := make([]int64, 0, len(path))
		for _, category := range path {
			categoryIDs = append(categoryIDs, category.ID)
		}
		if err := s.posts.LinkCategories(ctx, post.ID, categoryIDs); err != nil {
			return nil, err
		}
	}

	if err := s.attachTags(ctx, post.ID, tagTitles); err != nil {
		return nil, err
	}

	return post, nil
}

// attachTags upserts each non-empty tag title and links it to the post.
func (s *PostService) attachTags(ctx context.Context, postID int64, tagTitles []string) error {
	tagIDs := make([]int64, 0, len(tagTitles))
	for _, title := range tagTitles {
		if strings.TrimSpace(title) == "" {
			continue
		}
		newID, err := s.ids.Next()
		if err != nil {
			return err
		}
		tagID, err := s.tags.Upsert(ctx, newID, title)
		if err != nil {
			return err
		}
		tagIDs = append(tagIDs, tagID)
	}
	return s.tags.LinkPost(ctx, postID, tagIDs)
}

// GetPost retrieves a single post by its ID, or nil when unknown.
func (s *PostService) GetPost(ctx context.Context, id int64) (*data.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// GetPostTags returns the tags attached to a post.
func (s *PostService) GetPostTags(ctx context.Context, postID int64) ([]*data.Tag, error) {
	return s.tags.GetByPostID(ctx, postID)
}

// GetPostsByCategory returns the posts whose leaf category is the given one.
func (s *PostService) GetPostsByCategory(ctx context.Context, categoryID int64) ([]*data.Post, error) {
	return s.posts.GetByCategoryID(ctx, categoryID)
}
