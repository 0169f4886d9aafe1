// Package seed loads demonstration data into an inkwell database.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/thebtf/inkwell/internal/db"
	"github.com/thebtf/inkwell/pkg/models"
)

// Options controls how much demo data is generated.
type Options struct {
	Users          int
	PostsPerUser   int
	Workers        int
	PublishSome    bool // publish every other post
	CommentSamples bool
}

// DefaultOptions seeds a small but representative dataset.
func DefaultOptions() Options {
	return Options{
		Users:          8,
		PostsPerUser:   3,
		Workers:        4,
		PublishSome:    true,
		CommentSamples: true,
	}
}

var seedTags = []string{"go", "databases", "tooling", "testing", "performance"}

var seedCategories = []struct {
	name, slug, parent string
}{
	{"Engineering", "engineering", ""},
	{"Backend", "backend", "engineering"},
	{"Storage", "storage", "backend"},
	{"Writing", "writing", ""},
}

// Run populates the database with demo users, categories and posts.
// User and post creation fans out over concurrent sessions drawn from
// the shared pool; each worker commits its rows transactionally.
func Run(ctx context.Context, store *db.Store, opts Options) error {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	start := time.Now()

	catIDs, err := seedCategoryTree(ctx, store)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	userStore := db.NewUserStore(store)
	postStore := db.NewPostStore(store)

	// Partition users across workers; each worker creates its share of
	// users and their posts on its own session.
	err = store.RunConcurrent(ctx, opts.Workers, func(ctx context.Context, _ *gorm.DB, worker int) error {
		for i := worker; i < opts.Users; i += opts.Workers {
			if err := seedUser(ctx, userStore, postStore, catIDs, i, opts); err != nil {
				return fmt.Errorf("worker %d user %d: %w", worker, i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("users", opts.Users).
		Int("posts", opts.Users*opts.PostsPerUser).
		Dur("elapsed", time.Since(start)).
		Msg("Seed complete")
	return nil
}

// seedCategoryTree creates the demo category hierarchy and returns the
// slug-to-ID mapping.
func seedCategoryTree(ctx context.Context, store *db.Store) (map[string]int64, error) {
	catStore := db.NewCategoryStore(store)
	ids := make(map[string]int64, len(seedCategories))

	for _, c := range seedCategories {
		cat := &db.Category{Name: c.name, Slug: c.slug}
		if c.parent != "" {
			parentID, ok := ids[c.parent]
			if !ok {
				return nil, fmt.Errorf("parent category %q seeded out of order", c.parent)
			}
			cat.ParentID = sql.NullInt64{Int64: parentID, Valid: true}
		}

		err := catStore.CreateCategory(ctx, cat)
		switch {
		case err == nil:
			ids[c.slug] = cat.ID
		case isDuplicate(err):
			// Re-running seed against an existing database is fine.
			existing, getErr := catStore.GetCategory(ctx, c.slug)
			if getErr != nil {
				return nil, getErr
			}
			ids[c.slug] = existing.ID
		default:
			return nil, err
		}
	}
	return ids, nil
}

func seedUser(ctx context.Context, users *db.UserStore, posts *db.PostStore, catIDs map[string]int64, n int, opts Options) error {
	user := &db.User{
		Email:       fmt.Sprintf("author%02d@example.com", n),
		DisplayName: fmt.Sprintf("Author %02d", n),
		Interests:   models.JSONStringArray{seedTags[n%len(seedTags)], seedTags[(n+1)%len(seedTags)]},
		Active:      true,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil // already seeded
		}
		return err
	}

	if err := users.GrantRole(ctx, user.ID, string(models.RoleAuthor), "seed"); err != nil {
		return err
	}

	categoryID := catIDs["storage"]
	for p := 0; p < opts.PostsPerUser; p++ {
		post := &db.Post{
			AuthorID:   user.ID,
			CategoryID: sql.NullInt64{Int64: categoryID, Valid: true},
			Title:      fmt.Sprintf("Notes from author %02d, part %d", n, p+1),
			Slug:       fmt.Sprintf("author-%02d-notes-%d", n, p+1),
			Body:       "Seeded demonstration content.",
		}
		tags := []string{seedTags[(n+p)%len(seedTags)]}
		if err := posts.CreatePost(ctx, post, tags); err != nil {
			return err
		}

		if opts.PublishSome && p%2 == 0 {
			if err := posts.Publish(ctx, post.ID); err != nil {
				return err
			}
		}

		if opts.CommentSamples && p == 0 {
			comment := &db.Comment{
				PostID:   post.ID,
				AuthorID: user.ID,
				Body:     "Seeded first comment.",
			}
			if err := posts.AddComment(ctx, comment); err != nil {
				return err
			}
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, db.ErrDuplicate)
}
