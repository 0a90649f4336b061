package data

import (
	"time"
)

// Category represents one segment of a hierarchical category path.
//
// Titles are globally unique across the whole table, not just among siblings.
// Re-using a title anywhere in the forest re-uses the same row: an insert that
// hits an existing title re-anchors that row under the path it was most
// recently reached through. GroupID is the id of the branch's root, so all
// descendants of a root can be queried without traversal; a root row's GroupID
// equals its own ID.
type Category struct {
	ID        int64      `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	ParentID  *int64     `db:"parent_id" json:"parent_id"`
	GroupID   int64      `db:"group_id" json:"group_id"`
	Level     int        `db:"level" json:"level"`
	OwnerID   int64      `db:"owner_id" json:"owner_id"`
	Priority  int        `db:"priority" json:"priority"`
	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// Post represents a published article that references its most specific
// category (the leaf of the resolved path).
type Post struct {
	ID         int64      `db:"id" json:"id"`
	Title      string     `db:"title" json:"title"`
	Content    string     `db:"content" json:"content"`
	OwnerID    int64      `db:"owner_id" json:"owner_id"`
	CategoryID *int64     `db:"category_id" json:"category_id"`
	CreatedAt  *time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Tag is a flat label attached to posts. Titles are unique and stored
// lowercase.
type Tag struct {
	ID        int64      `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
}
