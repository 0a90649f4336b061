package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CategoryStore is the narrow, transaction-scoped capability set the
// hierarchy resolver walks a path with. Upsert must be atomic with respect to
// concurrent callers racing on the same title; the unique constraint on
// `title` is the synchronization point that prevents duplicate nodes.
type CategoryStore interface {
	FindByTitle(ctx context.Context, title string) (*Category, error)
	// Upsert inserts the category, or, if the title already exists, updates
	// the existing row's parent_id, group_id, level and owner_id in place.
	// It returns the id of the persisted row, which is the pre-existing id
	// on conflict.
	Upsert(ctx context.Context, category *Category) (int64, error)
	// SetGroupSelfReference makes the row its own group root. Needed for
	// roots because group_id depends on the row's own id.
	SetGroupSelfReference(ctx context.Context, id int64) error
}

// CategoryRepository handles database operations for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// InTx runs fn inside a single transaction, passing it a CategoryStore bound
// to that transaction. The transaction is rolled back if fn returns an error,
// so an aborted path walk leaves no partial nodes behind.
func (r *CategoryRepository) InTx(ctx context.Context, fn func(store CategoryStore) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	store := &categoryTx{tx: tx, dialect: r.db.DriverName()}
	if err := fn(store); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// categoryTx implements CategoryStore against one open transaction.
type categoryTx struct {
	tx      *sqlx.Tx
	dialect string
}

var _ CategoryStore = (*categoryTx)(nil)

// FindByTitle finds a live category by its globally unique title.
func (s *categoryTx) FindByTitle(ctx context.Context, title string) (*Category, error) {
	var category Category
	err := s.tx.GetContext(ctx, &category, "SELECT * FROM categories WHERE title = ? AND deleted_at IS NULL", title)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to find category by title: %w", err)
	}
	return &category, nil
}

func (s *categoryTx) Upsert(ctx context.Context, category *Category) (int64, error) {
	if s.dialect == DriverMySQL {
		return s.upsertMySQL(ctx, category)
	}
	return s.upsertSQLite(ctx, category)
}

// upsertSQLite uses ON CONFLICT ... RETURNING, so the persisted id comes back
// in a single statement.
func (s *categoryTx) upsertSQLite(ctx context.Context, category *Category) (int64, error) {
	query := `
		INSERT INTO categories (id, title, parent_id, group_id, level, owner_id, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (title) DO UPDATE SET
			parent_id = excluded.parent_id,
			group_id = excluded.group_id,
			level = excluded.level,
			owner_id = excluded.owner_id,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`
	var id int64
	err := s.tx.GetContext(ctx, &id, query,
		category.ID, category.Title, category.ParentID, category.GroupID,
		category.Level, category.OwnerID, category.Priority)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert category '%s': %w", category.Title, err)
	}
	return id, nil
}

// upsertMySQL cannot use RETURNING, so the persisted id is read back by title
// within the same transaction.
func (s *categoryTx) upsertMySQL(ctx context.Context, category *Category) (int64, error) {
	query := `
		INSERT INTO categories (id, title, parent_id, group_id, level, owner_id, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			parent_id = VALUES(parent_id),
			group_id = VALUES(group_id),
			level = VALUES(level),
			owner_id = VALUES(owner_id)`
	_, err := s.tx.ExecContext(ctx, query,
		category.ID, category.Title, category.ParentID, category.GroupID,
		category.Level, category.OwnerID, category.Priority)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert category '%s': %w", category.Title, err)
	}

	var id int64
	if err := s.tx.GetContext(ctx, &id, "SELECT id FROM categories WHERE title = ?", category.Title); err != nil {
		return 0, fmt.Errorf("failed to read back upserted category '%s': %w", category.Title, err)
	}
	return id, nil
}

// SetGroupSelfReference rewrites the row's group_id to its own id.
func (s *categoryTx) SetGroupSelfReference(ctx context.Context, id int64) error {
	_, err := s.tx.ExecContext(ctx, "UPDATE categories SET group_id = id WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to set group self reference for category %d: %w", id, err)
	}
	return nil
}

// GetByID finds a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var category Category
	err := r.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = ?", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}
	return &category, nil
}

// FindByTitle finds a category by its globally unique title, outside any
// transaction.
func (r *CategoryRepository) FindByTitle(ctx context.Context, title string) (*Category, error) {
	var category Category
	err := r.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE title = ? AND deleted_at IS NULL", title)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find category by title: %w", err)
	}
	return &category, nil
}

// GetAll retrieves all live categories.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	err := r.db.SelectContext(ctx, &categories,
		"SELECT * FROM categories WHERE deleted_at IS NULL ORDER BY priority, title")
	if err != nil {
		return nil, fmt.Errorf("failed to get all categories: %w", err)
	}
	return categories, nil
}

// GetRoots retrieves all root categories (level 0).
func (r *CategoryRepository) GetRoots(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	err := r.db.SelectContext(ctx, &categories,
		"SELECT * FROM categories WHERE level = 0 AND deleted_at IS NULL ORDER BY priority, title")
	if err != nil {
		return nil, fmt.Errorf("failed to get root categories: %w", err)
	}
	return categories, nil
}

// GetChildren retrieves the direct children of a category.
func (r *CategoryRepository) GetChildren(ctx context.Context, parentID int64) ([]*Category, error) {
	var categories []*Category
	err := r.db.SelectContext(ctx, &categories,
		"SELECT * FROM categories WHERE parent_id = ? AND deleted_at IS NULL ORDER BY priority, title", parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get children of category %d: %w", parentID, err)
	}
	return categories, nil
}

// GetPathTo returns the categories from the root down to the given category
// by walking parent links. An unknown id yields an empty path. Re-anchoring
// can leave a row parenting itself or an ancestor cycle, so each id is
// visited at most once.
func (r *CategoryRepository) GetPathTo(ctx context.Context, id int64) ([]*Category, error) {
	var path []*Category
	visited := make(map[int64]struct{})
	current := &id
	for current != nil {
		if _, seen := visited[*current]; seen {
			break
		}
		visited[*current] = struct{}{}
		category, err := r.GetByID(ctx, *current)
		if err != nil {
			return nil, err
		}
		if category == nil {
			break
		}
		path = append([]*Category{category}, path...)
		current = category.ParentID
	}
	return path, nil
}

// GetDescendants returns every category below the given one, using a
// recursive CTE so the tree is not walked row by row.
func (r *CategoryRepository) GetDescendants(ctx context.Context, id int64) ([]*Category, error) {
	query := `
		WITH RECURSIVE descendants AS (
			SELECT * FROM categories
			WHERE parent_id = ? AND deleted_at IS NULL
			UNION ALL
			SELECT c.* FROM categories c
			INNER JOIN descendants d ON c.parent_id = d.id
			WHERE c.deleted_at IS NULL
		)
		SELECT * FROM descendants ORDER BY level, priority, title`
	var categories []*Category
	if err := r.db.SelectContext(ctx, &categories, query, id); err != nil {
		return nil, fmt.Errorf("failed to get descendants of category %d: %w", id, err)
	}
	return categories, nil
}
