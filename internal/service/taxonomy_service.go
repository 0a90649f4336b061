package service

import (
	"context"
	"encoding/json"
	"errors"
	"go-taxonomy-service/internal/cache"
	"go-taxonomy-service/internal/data"
	"time"
)

// CategoryRepository defines the interface for database operations on
// categories.
type CategoryRepository interface {
	InTx(ctx context.Context, fn func(store data.CategoryStore) error) error
	GetByID(ctx context.Context, id int64) (*data.Category, error)
	FindByTitle(ctx context.Context, title string) (*data.Category, error)
	GetAll(ctx context.Context) ([]*data.Category, error)
	GetRoots(ctx context.Context) ([]*data.Category, error)
	GetChildren(ctx context.Context, parentID int64) ([]*data.Category, error)
	GetPathTo(ctx context.Context, id int64) ([]*data.Category, error)
	GetDescendants(ctx context.Context, id int64) ([]*data.Category, error)
}

// IDGenerator issues unique identifiers for new rows.
type IDGenerator interface {
	Next() (int64, error)
}

// ErrInvalidPath is reserved for per-segment validation of category paths.
// An overall-empty path is a successful no-op, not an error.
var ErrInvalidPath = errors.New("invalid category path")

const (
	categoryTreeCacheKey = "category_tree"
	categoryTreeCacheTTL = 5 * time.Minute
)

// TaxonomyService maintains the category forest. Its central operation maps
// an ordered path of category titles onto persisted rows and returns the id
// of the most specific one.
type TaxonomyService struct {
	categories CategoryRepository
	ids        IDGenerator
	cache      *cache.Cache
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(categories CategoryRepository, ids IDGenerator, c *cache.Cache) *TaxonomyService {
	return &TaxonomyService{
		categories: categories,
		ids:        ids,
		cache:      c,
	}
}

// ResolveHierarchy ensures every segment of the given path exists as a
// category row and returns the leaf's id. An empty path returns (nil, nil)
// and touches nothing.
//
// Titles are globally unique, so a segment whose title already exists
// anywhere in the forest re-uses that row and re-anchors it under the current
// path: parent_id, group_id and level are rewritten to reflect the path the
// title was most recently reached through. This is a latest-insertion-wins
// policy, not a merge. Resolving the same path twice is idempotent.
//
// The whole walk runs in one transaction; a failure anywhere leaves no
// partial branch behind. The service performs no retries — retry policy
// belongs to the caller.
func (s *TaxonomyService) ResolveHierarchy(ctx context.Context, path []string, ownerID int64) (*int64, error) {
	if len(path) == 0 {
		return nil, nil
	}

	var leafID int64
	err := s.categories.InTx(ctx, func(store data.CategoryStore) error {
		newRootID, err := s.ids.Next()
		if err != nil {
			return err
		}
		rootID, err := store.Upsert(ctx, &data.Category{
			ID:      newRootID,
			Title:   path[0],
			GroupID: newRootID,
			Level:   0,
			OwnerID: ownerID,
		})
		if err != nil {
			return err
		}
		// A root always references itself as its group, whether it was just
		// created or re-anchored from deeper in the forest. The upsert can't
		// express that, because on conflict the surviving id isn't known yet.
		if err := store.SetGroupSelfReference(ctx, rootID); err != nil {
			return err
		}

		parentID := rootID
		for i, title := range path[1:] {
			newID, err := s.ids.Next()
			if err != nil {
				return err
			}
			parent := parentID
			persistedID, err := store.Upsert(ctx, &data.Category{
				ID:       newID,
				Title:    title,
				ParentID: &parent,
				GroupID:  rootID,
				Level:    i + 1,
				OwnerID:  ownerID,
			})
			if err != nil {
				return err
			}
			parentID = persistedID
		}
		leafID = parentID
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The forest changed shape; cached reads are stale.
	_ = s.cache.Delete(categoryTreeCacheKey)

	return &leafID, nil
}

// CategoryTreeNode is one node of the rendered category forest.
type CategoryTreeNode struct {
	Category *data.Category      `json:"category"`
	Children []*CategoryTreeNode `json:"children"`
}

// GetCategoryTree returns the whole category forest as nested nodes, cached
// for a few minutes between mutations.
func (s *TaxonomyService) GetCategoryTree(ctx context.Context) ([]*CategoryTreeNode, error) {
	if cached, err := s.cache.Get(categoryTreeCacheKey); err == nil && cached != nil {
		var tree []*CategoryTreeNode
		if err := json.Unmarshal(cached, &tree); err == nil {
			return tree, nil
		}
		// A corrupt cache entry falls through to a fresh read.
	}

	all, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*CategoryTreeNode, len(all))
	for _, category := range all {
		nodes[category.ID] = &CategoryTreeNode{Category: category}
	}
	var roots []*CategoryTreeNode
	for _, category := range all {
		node := nodes[category.ID]
		if category.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*category.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			// Orphaned by an external soft delete of its ancestor; surface it
			// as a root rather than dropping it.
			roots = append(roots, node)
		}
	}

	if encoded, err := json.Marshal(roots); err == nil {
		_ = s.cache.Set(categoryTreeCacheKey, encoded, categoryTreeCacheTTL)
	}
	return roots, nil
}

// GetCategory returns a single category by id, or nil when unknown.
func (s *TaxonomyService) GetCategory(ctx context.Context, id int64) (*data.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// LookupCategory returns a category by its globally unique title, or nil.
func (s *TaxonomyService) LookupCategory(ctx context.Context, title string) (*data.Category, error) {
	return s.categories.FindByTitle(ctx, title)
}

// GetCategoryPath returns the chain of categories from the root down to the
// given one.
func (s *TaxonomyService) GetCategoryPath(ctx context.Context, id int64) ([]*data.Category, error) {
	return s.categories.GetPathTo(ctx, id)
}

// GetCategoryChildren returns the direct children of a category.
func (s *TaxonomyService) GetCategoryChildren(ctx context.Context, id int64) ([]*data.Category, error) {
	return s.categories.GetChildren(ctx, id)
}

// GetCategoryDescendants returns every category below the given one.
func (s *TaxonomyService) GetCategoryDescendants(ctx context.Context, id int64) ([]*data.Category, error) {
	return s.categories.GetDescendants(ctx, id)
}
