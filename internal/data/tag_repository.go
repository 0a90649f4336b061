package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// TagRepository handles database operations for tags and post-tag links.
// Tag titles are unique and normalized to lowercase before storage.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository creates a new TagRepository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// FindByTitle finds a tag by its normalized title.
func (r *TagRepository) FindByTitle(ctx context.Context, title string) (*Tag, error) {
	var tag Tag
	err := r.db.GetContext(ctx, &tag, "SELECT * FROM tags WHERE title = ?", normalizeTitle(title))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to find tag by title: %w", err)
	}
	return &tag, nil
}

// Upsert inserts a tag with the given id, or leaves an existing tag with the
// same title untouched. It returns the persisted tag's id.
func (r *TagRepository) Upsert(ctx context.Context, id int64, title string) (int64, error) {
	title = normalizeTitle(title)
	if title == "" {
		return 0, fmt.Errorf("tag title cannot be empty")
	}

	query := `INSERT INTO tags (id, title) VALUES (?, ?) ON CONFLICT (title) DO NOTHING`
	if r.db.DriverName() == DriverMySQL {
		query = `INSERT IGNORE INTO tags (id, title) VALUES (?, ?)`
	}
	if _, err := r.db.ExecContext(ctx, query, id, title); err != nil {
		return 0, fmt.Errorf("failed to upsert tag '%s': %w", title, err)
	}

	var persistedID int64
	if err := r.db.GetContext(ctx, &persistedID, "SELECT id FROM tags WHERE title = ?", title); err != nil {
		return 0, fmt.Errorf("failed to read back upserted tag '%s': %w", title, err)
	}
	return persistedID, nil
}

// LinkPost attaches the given tags to a post. Existing links are kept as-is.
func (r *TagRepository) LinkPost(ctx context.Context, postID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	query := `INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)
		ON CONFLICT (post_id, tag_id) DO NOTHING`
	if r.db.DriverName() == DriverMySQL {
		query = `INSERT IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`
	}
	for _, tagID := range tagIDs {
		if _, err := r.db.ExecContext(ctx, query, postID, tagID); err != nil {
			return fmt.Errorf("failed to link post %d to tag %d: %w", postID, tagID, err)
		}
	}
	return nil
}

// GetByPostID returns all tags attached to a post.
func (r *TagRepository) GetByPostID(ctx context.Context, postID int64) ([]*Tag, error) {
	var tags []*Tag
	query := `SELECT t.* FROM tags t
		INNER JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = ? ORDER BY t.title`
	if err := r.db.SelectContext(ctx, &tags, query, postID); err != nil {
		return nil, fmt.Errorf("failed to get tags for post %d: %w", postID, err)
	}
	return tags, nil
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
