// Package db provides GORM-based database operations for inkwell.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/thebtf/inkwell/pkg/models"
)

// DefaultListLimit is the fallback page size for post listings.
const DefaultListLimit = 20

// PostOption composes eager-loading behaviour onto a post query.
// Options keep the listing queries to a fixed number of statements
// regardless of result size.
type PostOption func(*gorm.DB) *gorm.DB

// WithAuthor preloads the post author.
func WithAuthor() PostOption {
	return func(q *gorm.DB) *gorm.DB {
		return q.Preload("Author")
	}
}

// WithTags preloads post tags.
func WithTags() PostOption {
	return func(q *gorm.DB) *gorm.DB {
		return q.Preload("Tags")
	}
}

// WithCategory preloads the post category.
func WithCategory() PostOption {
	return func(q *gorm.DB) *gorm.DB {
		return q.Preload("Category")
	}
}

// WithComments preloads comments in thread order together with their authors.
func WithComments() PostOption {
	return func(q *gorm.DB) *gorm.DB {
		return q.Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC")
		}).Preload("Comments.Author")
	}
}

// PostStore provides post, tag and comment operations.
type PostStore struct {
	store *Store
	db    *gorm.DB
}

// NewPostStore creates a new post store.
func NewPostStore(store *Store) *PostStore {
	return &PostStore{store: store, db: store.DB}
}

// applyOptions folds eager-loading options onto a base query.
func applyOptions(q *gorm.DB, opts []PostOption) *gorm.DB {
	for _, opt := range opts {
		q = opt(q)
	}
	return q
}

// CreatePost inserts a post and its tags in one transaction. Tags are
// created on first use and reused afterwards. A conflicting slug yields
// ErrDuplicate and leaves no partial state behind.
func (s *PostStore) CreatePost(ctx context.Context, post *Post, tagNames []string) error {
	if post.Title == "" || post.Slug == "" {
		return fmt.Errorf("%w: title and slug are required", ErrInvalidInput)
	}

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		tags := make([]Tag, 0, len(tagNames))
		for _, name := range tagNames {
			var tag Tag
			if err := tx.Where(Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
				return fmt.Errorf("tag %q: %w", name, err)
			}
			tags = append(tags, tag)
		}
		post.Tags = tags

		return tx.Create(post).Error
	})
	if err != nil {
		return translateError(err)
	}

	log.Debug().Int64("id", post.ID).Str("slug", post.Slug).Msg("Post created")
	return nil
}

// GetPost fetches a post by primary key.
func (s *PostStore) GetPost(ctx context.Context, id int64, opts ...PostOption) (*Post, error) {
	var post Post
	err := applyOptions(s.db.WithContext(ctx), opts).First(&post, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &post, nil
}

// GetPostBySlug fetches a post by slug.
func (s *PostStore) GetPostBySlug(ctx context.Context, slug string, opts ...PostOption) (*Post, error) {
	var post Post
	err := applyOptions(s.db.WithContext(ctx), opts).
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &post, nil
}

// ListPublished returns a page of published posts, newest first.
func (s *PostStore) ListPublished(ctx context.Context, limit, offset int, opts ...PostOption) ([]Post, int64, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	base := s.db.WithContext(ctx).Model(&Post{}).Where("status = ?", models.PostPublished)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var posts []Post
	err := applyOptions(base.Session(&gorm.Session{}), opts).
		Order("published_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return posts, total, nil
}

// ListByAuthor returns an author's posts across all statuses.
func (s *PostStore) ListByAuthor(ctx context.Context, authorID int64, opts ...PostOption) ([]Post, error) {
	var posts []Post
	err := applyOptions(s.db.WithContext(ctx), opts).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, translateError(err)
	}
	return posts, nil
}

// ListPublishedJoined lists published posts with the author resolved in
// a single joined query instead of a second preload statement. Useful
// when only author columns are needed alongside the post.
func (s *PostStore) ListPublishedJoined(ctx context.Context, limit, offset int) ([]Post, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var posts []Post
	err := s.db.WithContext(ctx).
		Joins("Author").
		Where("posts.status = ?", models.PostPublished).
		Order("posts.published_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, translateError(err)
	}
	return posts, nil
}

// Publish moves a draft post to published and stamps the publish time.
// Publishing a non-draft post yields ErrInvalidInput.
func (s *PostStore) Publish(ctx context.Context, id int64) error {
	return s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var post Post
		if err := tx.First(&post, id).Error; err != nil {
			return translateError(err)
		}
		if post.Status != models.PostDraft {
			return fmt.Errorf("%w: cannot publish post in status %q", ErrInvalidInput, post.Status)
		}

		now := time.Now()
		return tx.Model(&post).Updates(map[string]any{
			"status":       models.PostPublished,
			"published_at": now,
		}).Error
	})
}

// Archive retires a post from the published listing.
func (s *PostStore) Archive(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).
		Model(&Post{}).
		Where("id = ?", id).
		Update("status", models.PostArchived)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter without a read-modify-write race.
func (s *PostStore) IncrementViews(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).
		Model(&Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// AddComment attaches a comment to a post inside a transaction so the
// post's existence is verified under the same snapshot.
func (s *PostStore) AddComment(ctx context.Context, comment *Comment) error {
	if comment.Body == "" {
		return fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}
	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Post{}).Where("id = ?", comment.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post %d: %w", comment.PostID, ErrNotFound)
		}
		return tx.Create(comment).Error
	})
	return translateError(err)
}

// AuthorPostCount pairs an author with their published post count.
type AuthorPostCount struct {
	AuthorID    int64  `json:"author_id"`
	DisplayName string `json:"display_name"`
	Count       int64  `json:"count"`
}

// CountByAuthor aggregates published post counts per author in one
// grouped query rather than a count query per user.
func (s *PostStore) CountByAuthor(ctx context.Context) ([]AuthorPostCount, error) {
	var counts []AuthorPostCount
	err := s.db.WithContext(ctx).
		Model(&Post{}).
		Select("posts.author_id, users.display_name, COUNT(*) as count").
		Joins("JOIN users ON users.id = posts.author_id").
		Where("posts.status = ?", models.PostPublished).
		Group("posts.author_id, users.display_name").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, translateError(err)
	}
	return counts, nil
}

// ListByTag returns published posts carrying the given tag.
func (s *PostStore) ListByTag(ctx context.Context, tagName string, opts ...PostOption) ([]Post, error) {
	var posts []Post
	err := applyOptions(s.db.WithContext(ctx), opts).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.name = ? AND posts.status = ?", tagName, models.PostPublished).
		Order("posts.published_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, translateError(err)
	}
	return posts, nil
}
