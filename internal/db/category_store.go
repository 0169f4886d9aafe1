// Package db provides GORM-based database operations for inkwell.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// CategoryStore provides category tree operations.
type CategoryStore struct {
	store *Store
	db    *gorm.DB
}

// NewCategoryStore creates a new category store.
func NewCategoryStore(store *Store) *CategoryStore {
	return &CategoryStore{store: store, db: store.DB}
}

// CreateCategory inserts a category, optionally under a parent.
// A conflicting slug yields ErrDuplicate; a missing parent ErrNotFound.
func (s *CategoryStore) CreateCategory(ctx context.Context, cat *Category) error {
	if cat.Name == "" || cat.Slug == "" {
		return fmt.Errorf("%w: name and slug are required", ErrInvalidInput)
	}

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		if cat.ParentID.Valid {
			var count int64
			if err := tx.Model(&Category{}).Where("id = ?", cat.ParentID.Int64).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("parent category %d: %w", cat.ParentID.Int64, ErrNotFound)
			}
		}
		return tx.Create(cat).Error
	})
	return translateError(err)
}

// GetCategory fetches a category by slug with its direct children.
func (s *CategoryStore) GetCategory(ctx context.Context, slug string) (*Category, error) {
	var cat Category
	err := s.db.WithContext(ctx).
		Preload("Children").
		Where("slug = ?", slug).
		First(&cat).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &cat, nil
}

// ListRoots returns top-level categories with two levels of children
// preloaded. Deeper trees are fetched on demand per node.
func (s *CategoryStore) ListRoots(ctx context.Context) ([]Category, error) {
	var roots []Category
	err := s.db.WithContext(ctx).
		Preload("Children").
		Preload("Children.Children").
		Where("parent_id IS NULL").
		Order("name").
		Find(&roots).Error
	if err != nil {
		return nil, translateError(err)
	}
	return roots, nil
}

// Reparent moves a category under a new parent. A nil newParentID moves
// it to the root. Moving a category under itself or one of its own
// descendants is rejected, otherwise the tree would cycle.
func (s *CategoryStore) Reparent(ctx context.Context, id int64, newParentID *int64) error {
	return s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var cat Category
		if err := tx.First(&cat, id).Error; err != nil {
			return translateError(err)
		}

		if newParentID == nil {
			return tx.Model(&cat).Update("parent_id", nil).Error
		}

		if *newParentID == id {
			return fmt.Errorf("%w: category cannot be its own parent", ErrInvalidInput)
		}

		// Walk up from the proposed parent; hitting the moved node
		// means the move would create a cycle.
		cursor := *newParentID
		for {
			var parent Category
			if err := tx.First(&parent, cursor).Error; err != nil {
				return fmt.Errorf("parent category %d: %w", cursor, translateError(err))
			}
			if !parent.ParentID.Valid {
				break
			}
			if parent.ParentID.Int64 == id {
				return fmt.Errorf("%w: move would create a category cycle", ErrInvalidInput)
			}
			cursor = parent.ParentID.Int64
		}

		return tx.Model(&cat).Update("parent_id", sql.NullInt64{Int64: *newParentID, Valid: true}).Error
	})
}

// DeleteCategory removes an empty leaf category. Categories with
// children or posts are refused.
func (s *CategoryStore) DeleteCategory(ctx context.Context, id int64) error {
	return s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var children int64
		if err := tx.Model(&Category{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: category %d has children", ErrInvalidInput, id)
		}

		var posts int64
		if err := tx.Model(&Post{}).Where("category_id = ?", id).Count(&posts).Error; err != nil {
			return err
		}
		if posts > 0 {
			return fmt.Errorf("%w: category %d has posts", ErrInvalidInput, id)
		}

		res := tx.Delete(&Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
