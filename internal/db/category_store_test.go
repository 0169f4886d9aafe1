// Package db provides GORM-based database operations for inkwell.
package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// categoryTree builds tech -> databases -> postgres plus a root-level
// misc category and returns the nodes by slug.
func categoryTree(t *testing.T, store *Store) map[string]*Category {
	t.Helper()
	ctx := context.Background()
	cats := NewCategoryStore(store)

	tech := &Category{Name: "Tech", Slug: "tech"}
	require.NoError(t, cats.CreateCategory(ctx, tech))

	databases := &Category{
		Name:     "Databases",
		Slug:     "databases",
		ParentID: sql.NullInt64{Int64: tech.ID, Valid: true},
	}
	require.NoError(t, cats.CreateCategory(ctx, databases))

	postgres := &Category{
		Name:     "Postgres",
		Slug:     "postgres",
		ParentID: sql.NullInt64{Int64: databases.ID, Valid: true},
	}
	require.NoError(t, cats.CreateCategory(ctx, postgres))

	misc := &Category{Name: "Misc", Slug: "misc"}
	require.NoError(t, cats.CreateCategory(ctx, misc))

	return map[string]*Category{
		"tech":      tech,
		"databases": databases,
		"postgres":  postgres,
		"misc":      misc,
	}
}

func TestCategoryStore_CreateCategory(t *testing.T) {
	store := testStore(t)
	cats := NewCategoryStore(store)
	ctx := context.Background()

	cat := &Category{Name: "Go", Slug: "go"}
	require.NoError(t, cats.CreateCategory(ctx, cat))
	assert.Greater(t, cat.ID, int64(0))

	dup := &Category{Name: "Go Again", Slug: "go"}
	assert.ErrorIs(t, cats.CreateCategory(ctx, dup), ErrDuplicate)

	missing := &Category{Name: "Orphan", Slug: "orphan", ParentID: sql.NullInt64{Int64: 9999, Valid: true}}
	assert.ErrorIs(t, cats.CreateCategory(ctx, missing), ErrNotFound)

	assert.ErrorIs(t, cats.CreateCategory(ctx, &Category{Name: "No Slug"}), ErrInvalidInput)
}

func TestCategoryStore_GetCategory(t *testing.T) {
	store := testStore(t)
	cats := NewCategoryStore(store)
	ctx := context.Background()

	tree := categoryTree(t, store)

	got, err := cats.GetCategory(ctx, "tech")
	require.NoError(t, err)
	require.Len(t, got.Children, 1)
	assert.Equal(t, tree["databases"].ID, got.Children[0].ID)

	_, err = cats.GetCategory(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryStore_ListRoots(t *testing.T) {
	store := testStore(t)
	cats := NewCategoryStore(store)
	ctx := context.Background()

	categoryTree(t, store)

	roots, err := cats.ListRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)

	// Ordered by name: Misc before Tech.
	assert.Equal(t, "misc", roots[0].Slug)
	assert.Equal(t, "tech", roots[1].Slug)

	// Two preload levels: tech -> databases -> postgres.
	require.Len(t, roots[1].Children, 1)
	require.Len(t, roots[1].Children[0].Children, 1)
	assert.Equal(t, "postgres", roots[1].Children[0].Children[0].Slug)
}

func TestCategoryStore_Reparent(t *testing.T) {
	store := testStore(t)
	cats := NewCategoryStore(store)
	ctx := context.Background()

	tree := categoryTree(t, store)

	// Move postgres under misc.
	require.NoError(t, cats.Reparent(ctx, tree["postgres"].ID, &tree["misc"].ID))
	got, err := cats.GetCategory(ctx, "misc")
	require.NoError(t, err)
	require.Len(t, got.Children, 1)
	assert.Equal(t, "postgres", got.Children[0].Slug)

	// Move databases to the root.
	require.NoError(t, cats.Reparent(ctx, tree["databases"].ID, nil))
	roots, err := cats.ListRoots(ctx)
	require.NoError(t, err)
	assert.Len(t, roots, 3)
}

func TestCategoryStore_Reparent_Rejections(t *testing.T) {
	store := testStore(t)
	cats := NewCategoryStore(store)
	ctx := context.Background()

	tree := categoryTree(t, store)

	// A node cannot parent itself.
	err := cats.Reparent(ctx, tree["tech"].ID, &tree["tech"].ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Moving tech under its grandchild would cycle.
	err = cats.Reparent(ctx, tree["tech"].ID, &tree["postgres"].ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Moving tech under its direct child would cycle too.
	err = cats.Reparent(ctx, tree["tech"].ID, &tree["databases"].ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := int64(9999)
	err = cats.Reparent(ctx, tree["misc"].ID, &missing)
	assert.ErrorIs(t, err, ErrNotFound)

	err = cats.Reparent(ctx, 9999, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	// Failed moves leave the tree untouched.
	got, err := cats.GetCategory(ctx, "tech")
	require.NoError(t, err)
	assert.False(t, got.ParentID.Valid)
}

func TestCategoryStore_DeleteCategory(t *testing.T) {
	store := testStore(t)
	cats := NewCategoryStore(store)
	users := NewUserStore(store)
	posts := NewPostStore(store)
	ctx := context.Background()

	tree := categoryTree(t, store)

	// Refused: tech still has children.
	assert.ErrorIs(t, cats.DeleteCategory(ctx, tree["tech"].ID), ErrInvalidInput)

	// Refused: misc holds a post.
	author := &User{Email: "cat@example.com", DisplayName: "Cat"}
	require.NoError(t, users.CreateUser(ctx, author))
	post := &Post{
		AuthorID:   author.ID,
		CategoryID: sql.NullInt64{Int64: tree["misc"].ID, Valid: true},
		Title:      "In Misc",
		Slug:       "in-misc",
	}
	require.NoError(t, posts.CreatePost(ctx, post, nil))
	assert.ErrorIs(t, cats.DeleteCategory(ctx, tree["misc"].ID), ErrInvalidInput)

	// An empty leaf deletes cleanly.
	require.NoError(t, cats.DeleteCategory(ctx, tree["postgres"].ID))
	_, err := cats.GetCategory(ctx, "postgres")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, cats.DeleteCategory(ctx, 9999), ErrNotFound)
}
