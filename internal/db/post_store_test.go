// Package db provides GORM-based database operations for inkwell.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/inkwell/pkg/models"
)

// postFixture creates a user plus n posts and returns both. Even posts
// are published with descending publish times so listings have a
// deterministic order.
func postFixture(t *testing.T, store *Store, n int) (*User, []Post) {
	t.Helper()
	ctx := context.Background()

	users := NewUserStore(store)
	posts := NewPostStore(store)

	author := &User{Email: "author@example.com", DisplayName: "Author"}
	require.NoError(t, users.CreateUser(ctx, author))

	created := make([]Post, 0, n)
	for i := 0; i < n; i++ {
		post := &Post{
			AuthorID: author.ID,
			Title:    fmt.Sprintf("Post %d", i),
			Slug:     fmt.Sprintf("post-%d", i),
			Body:     "body",
		}
		require.NoError(t, posts.CreatePost(ctx, post, nil))
		if i%2 == 0 {
			require.NoError(t, posts.Publish(ctx, post.ID))
			// Spread publish times so ordering assertions are stable.
			ts := time.Now().Add(-time.Duration(n-i) * time.Hour)
			require.NoError(t, store.DB.Model(&Post{}).
				Where("id = ?", post.ID).
				Update("published_at", ts).Error)
		}
		created = append(created, *post)
	}
	return author, created
}

func TestPostStore_CreatePost_WithTags(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, _ := postFixture(t, store, 0)

	post := &Post{AuthorID: author.ID, Title: "Tagged", Slug: "tagged"}
	require.NoError(t, posts.CreatePost(ctx, post, []string{"go", "orm"}))
	assert.NotEmpty(t, post.PublicID)
	assert.Equal(t, models.PostDraft, post.Status)

	// A second post reuses the existing tag rows.
	other := &Post{AuthorID: author.ID, Title: "Also Tagged", Slug: "also-tagged"}
	require.NoError(t, posts.CreatePost(ctx, other, []string{"go"}))

	var tagCount int64
	require.NoError(t, store.DB.Model(&Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(2), tagCount)
}

func TestPostStore_CreatePost_DuplicateSlugRollsBack(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, _ := postFixture(t, store, 0)

	first := &Post{AuthorID: author.ID, Title: "First", Slug: "same-slug"}
	require.NoError(t, posts.CreatePost(ctx, first, nil))

	dup := &Post{AuthorID: author.ID, Title: "Second", Slug: "same-slug"}
	err := posts.CreatePost(ctx, dup, []string{"fresh-tag"})
	require.ErrorIs(t, err, ErrDuplicate)

	// The transaction rolled back, so the tag created alongside the
	// failed post must not survive.
	var tagCount int64
	require.NoError(t, store.DB.Model(&Tag{}).Where("name = ?", "fresh-tag").Count(&tagCount).Error)
	assert.Zero(t, tagCount)
}

func TestPostStore_CreatePost_MissingFields(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)

	err := posts.CreatePost(context.Background(), &Post{Title: "No Slug"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPostStore_GetPost_EagerLoading(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, _ := postFixture(t, store, 0)

	post := &Post{AuthorID: author.ID, Title: "Loaded", Slug: "loaded"}
	require.NoError(t, posts.CreatePost(ctx, post, []string{"go"}))
	require.NoError(t, posts.AddComment(ctx, &Comment{PostID: post.ID, AuthorID: author.ID, Body: "first"}))
	require.NoError(t, posts.AddComment(ctx, &Comment{PostID: post.ID, AuthorID: author.ID, Body: "second"}))

	// Without options the associations stay empty.
	bare, err := posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, bare.Author)
	assert.Empty(t, bare.Tags)

	loaded, err := posts.GetPost(ctx, post.ID, WithAuthor(), WithTags(), WithComments())
	require.NoError(t, err)
	require.NotNil(t, loaded.Author)
	assert.Equal(t, author.ID, loaded.Author.ID)
	require.Len(t, loaded.Tags, 1)
	assert.Equal(t, "go", loaded.Tags[0].Name)
	require.Len(t, loaded.Comments, 2)
	assert.Equal(t, "first", loaded.Comments[0].Body)
	require.NotNil(t, loaded.Comments[0].Author)
}

func TestPostStore_GetPostBySlug(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	_, created := postFixture(t, store, 1)

	got, err := posts.GetPostBySlug(ctx, created[0].Slug)
	require.NoError(t, err)
	assert.Equal(t, created[0].ID, got.ID)

	_, err = posts.GetPostBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostStore_ListPublished(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	postFixture(t, store, 6) // 3 published

	page, total, err := posts.ListPublished(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)

	// Newest publish time first.
	assert.True(t, page[0].PublishedAt.Time.After(page[1].PublishedAt.Time))
	for _, p := range page {
		assert.Equal(t, models.PostPublished, p.Status)
	}

	rest, _, err := posts.ListPublished(ctx, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestPostStore_ListPublishedJoined(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, _ := postFixture(t, store, 4) // 2 published

	got, err := posts.ListPublishedJoined(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		require.NotNil(t, p.Author)
		assert.Equal(t, author.DisplayName, p.Author.DisplayName)
	}
}

func TestPostStore_ListByAuthor(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, _ := postFixture(t, store, 3)

	got, err := posts.ListByAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	none, err := posts.ListByAuthor(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostStore_Publish(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, _ := postFixture(t, store, 0)

	post := &Post{AuthorID: author.ID, Title: "Draft", Slug: "draft"}
	require.NoError(t, posts.CreatePost(ctx, post, nil))

	require.NoError(t, posts.Publish(ctx, post.ID))

	got, err := posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostPublished, got.Status)
	assert.True(t, got.PublishedAt.Valid)

	// Publishing twice is rejected. The post stays published.
	err = posts.Publish(ctx, post.ID)
	require.ErrorIs(t, err, ErrInvalidInput)

	again, err := posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostPublished, again.Status)

	assert.ErrorIs(t, posts.Publish(ctx, 9999), ErrNotFound)
}

func TestPostStore_Archive(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	_, created := postFixture(t, store, 1)

	require.NoError(t, posts.Archive(ctx, created[0].ID))

	got, err := posts.GetPost(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostArchived, got.Status)

	assert.ErrorIs(t, posts.Archive(ctx, 9999), ErrNotFound)
}

func TestPostStore_IncrementViews(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	_, created := postFixture(t, store, 1)

	for i := 0; i < 3; i++ {
		require.NoError(t, posts.IncrementViews(ctx, created[0].ID))
	}

	got, err := posts.GetPost(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ViewCount)
}

func TestPostStore_AddComment(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, created := postFixture(t, store, 1)

	parent := &Comment{PostID: created[0].ID, AuthorID: author.ID, Body: "root"}
	require.NoError(t, posts.AddComment(ctx, parent))

	reply := &Comment{
		PostID:   created[0].ID,
		AuthorID: author.ID,
		ParentID: sql.NullInt64{Int64: parent.ID, Valid: true},
		Body:     "reply",
	}
	require.NoError(t, posts.AddComment(ctx, reply))

	err := posts.AddComment(ctx, &Comment{PostID: 9999, AuthorID: author.ID, Body: "orphan"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = posts.AddComment(ctx, &Comment{PostID: created[0].ID, AuthorID: author.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPostStore_CountByAuthor(t *testing.T) {
	store := testStore(t)
	users := NewUserStore(store)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, _ := postFixture(t, store, 4) // 2 published

	quiet := &User{Email: "quiet@example.com", DisplayName: "Quiet"}
	require.NoError(t, users.CreateUser(ctx, quiet))
	draft := &Post{AuthorID: quiet.ID, Title: "Unpublished", Slug: "unpublished"}
	require.NoError(t, posts.CreatePost(ctx, draft, nil))

	counts, err := posts.CountByAuthor(ctx)
	require.NoError(t, err)

	// Only published posts count, so the quiet author does not appear.
	require.Len(t, counts, 1)
	assert.Equal(t, author.ID, counts[0].AuthorID)
	assert.Equal(t, author.DisplayName, counts[0].DisplayName)
	assert.Equal(t, int64(2), counts[0].Count)
}

func TestPostStore_ListByTag(t *testing.T) {
	store := testStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	author, _ := postFixture(t, store, 0)

	tagged := &Post{AuthorID: author.ID, Title: "Tagged", Slug: "tagged"}
	require.NoError(t, posts.CreatePost(ctx, tagged, []string{"go"}))
	require.NoError(t, posts.Publish(ctx, tagged.ID))

	// Same tag but still a draft, so it must not be listed.
	hidden := &Post{AuthorID: author.ID, Title: "Hidden", Slug: "hidden"}
	require.NoError(t, posts.CreatePost(ctx, hidden, []string{"go"}))

	got, err := posts.ListByTag(ctx, "go", WithTags())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tagged.ID, got[0].ID)
	require.Len(t, got[0].Tags, 1)

	none, err := posts.ListByTag(ctx, "rust")
	require.NoError(t, err)
	assert.Empty(t, none)
}
