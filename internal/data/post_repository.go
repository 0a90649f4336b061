package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostRepository handles database operations for posts and their category
// links.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// CreatePost inserts a new post. IDs are generated by the caller, so the
// post's ID must already be set.
func (r *PostRepository) CreatePost(ctx context.Context, post *Post) error {
	query := `INSERT INTO posts (id, title, content, owner_id, category_id)
		VALUES (:id, :title, :content, :owner_id, :category_id)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a single post by its ID.
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*Post, error) {
	var post Post
	err := r.db.GetContext(ctx, &post, "SELECT * FROM posts WHERE id = ?", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}
	return &post, nil
}

// GetByCategoryID retrieves all posts whose leaf category is the given one.
func (r *PostRepository) GetByCategoryID(ctx context.Context, categoryID int64) ([]*Post, error) {
	var posts []*Post
	err := r.db.SelectContext(ctx, &posts, "SELECT * FROM posts WHERE category_id = ?", categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts by category id: %w", err)
	}
	return posts, nil
}

// LinkCategories records the post's membership in every category of its
// resolved path, so branch-wide queries don't have to walk parent links.
// Existing links are kept as-is.
func (r *PostRepository) LinkCategories(ctx context.Context, postID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	query := `INSERT INTO post_categories (post_id, category_id) VALUES (?, ?)
		ON CONFLICT (post_id, category_id) DO NOTHING`
	if r.db.DriverName() == DriverMySQL {
		query = `INSERT IGNORE INTO post_categories (post_id, category_id) VALUES (?, ?)`
	}
	for _, categoryID := range categoryIDs {
		if _, err := r.db.ExecContext(ctx, query, postID, categoryID); err != nil {
			return fmt.Errorf("failed to link post %d to category %d: %w", postID, categoryID, err)
		}
	}
	return nil
}

// GetCategoryIDs returns the ids of every category the post is linked to.
func (r *PostRepository) GetCategoryIDs(ctx context.Context, postID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		"SELECT category_id FROM post_categories WHERE post_id = ? ORDER BY category_id", postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category links for post %d: %w", postID, err)
	}
	return ids, nil
}
