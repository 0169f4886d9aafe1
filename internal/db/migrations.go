// Package db provides GORM-based database operations for inkwell.
package db

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/inkwell/pkg/models"
)

// migrationList returns the full ordered migration set. Each entry has a
// rollback so the schema can be stepped down revision by revision.
func migrationList() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		// Migration 001: accounts and roles
		{
			ID: "001_users_roles",
			Migrate: func(tx *gorm.DB) error {
				// AutoMigrate creates tables with all indexes from struct tags
				if err := tx.AutoMigrate(&User{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Role{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&UserRole{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("user_roles", "roles", "users")
			},
		},

		// Migration 002: categories (self-referential tree)
		{
			ID: "002_categories",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Category{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("categories")
			},
		},

		// Migration 003: posts, tags and comments
		{
			ID: "003_posts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Tag{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Post{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&Comment{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("comments", "post_tags", "posts", "tags")
			},
		},

		// Migration 004: seed built-in roles
		{
			ID: "004_seed_roles",
			Migrate: func(tx *gorm.DB) error {
				roles := make([]Role, 0, len(models.DefaultRoles))
				for _, name := range models.DefaultRoles {
					roles = append(roles, Role{Name: string(name)})
				}
				// INSERT OR IGNORE equivalent in GORM
				return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error
			},
			Rollback: func(tx *gorm.DB) error {
				names := make([]string, 0, len(models.DefaultRoles))
				for _, name := range models.DefaultRoles {
					names = append(names, string(name))
				}
				return tx.Where("name IN ?", names).Delete(&Role{}).Error
			},
		},

		// Migration 005: composite indexes for listing queries
		{
			ID: "005_listing_indexes",
			Migrate: func(tx *gorm.DB) error {
				sqls := []string{
					// Covers: WHERE status = 'published' ORDER BY published_at DESC
					`CREATE INDEX IF NOT EXISTS idx_posts_status_published
					 ON posts(status, published_at DESC)`,

					// Covers comment listing per post in thread order
					`CREATE INDEX IF NOT EXISTS idx_comments_post_created
					 ON comments(post_id, created_at)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				sqls := []string{
					"DROP INDEX IF EXISTS idx_posts_status_published",
					"DROP INDEX IF EXISTS idx_comments_post_created",
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

func newMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrationList())
}

// RunMigrations brings the schema up to the latest revision.
func RunMigrations(db *gorm.DB) error {
	if err := newMigrator(db).Migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// RollbackSteps rolls back the given number of applied migrations,
// newest first. Rolling back more steps than have been applied is an
// error.
func RollbackSteps(db *gorm.DB, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	m := newMigrator(db)
	for i := 0; i < steps; i++ {
		if err := m.RollbackLast(); err != nil {
			return fmt.Errorf("rollback step %d: %w", i+1, err)
		}
	}
	return nil
}

// AppliedMigrations returns the IDs of applied migrations in order.
func AppliedMigrations(db *gorm.DB) ([]string, error) {
	if !db.Migrator().HasTable(gormigrate.DefaultOptions.TableName) {
		return nil, nil
	}
	var ids []string
	err := db.Table(gormigrate.DefaultOptions.TableName).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return ids, nil
}

// ResetSchema rolls every migration back and re-applies the full set.
// Intended for development databases only.
func ResetSchema(db *gorm.DB) error {
	applied, err := AppliedMigrations(db)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		if err := RollbackSteps(db, len(applied)); err != nil {
			return err
		}
	}
	return RunMigrations(db)
}
