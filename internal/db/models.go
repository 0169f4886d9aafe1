// Package db provides GORM-based database operations for inkwell.
package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thebtf/inkwell/pkg/models"
)

// User represents an account that can author posts and comments.
type User struct {
	ID          int64                  `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID    string                 `gorm:"type:text;uniqueIndex;not null" json:"public_id"`
	Email       string                 `gorm:"type:text;uniqueIndex;not null" json:"email"`
	DisplayName string                 `gorm:"type:text;not null" json:"display_name"`
	Bio         sql.NullString         `gorm:"type:text" json:"bio"`
	Interests   models.JSONStringArray `gorm:"type:text" json:"interests"`
	Active      bool                   `gorm:"default:true;index" json:"active"`
	Roles       []Role                 `gorm:"many2many:user_roles" json:"roles,omitempty"`
	Posts       []Post                 `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
	CreatedAt   time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// BeforeCreate assigns a public identifier when none is set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PublicID == "" {
		u.PublicID = uuid.NewString()
	}
	return nil
}

// Role is a named permission grouping.
type Role struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:text;uniqueIndex;not null" json:"name"`
	Description sql.NullString `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (Role) TableName() string { return "roles" }

// UserRole is the association object joining users and roles. It carries
// grant metadata beyond the bare pair, which is why the join table is
// modelled explicitly instead of being left implicit.
type UserRole struct {
	UserID    int64          `gorm:"primaryKey" json:"user_id"`
	RoleID    int64          `gorm:"primaryKey" json:"role_id"`
	GrantedBy sql.NullString `gorm:"type:text" json:"granted_by"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (UserRole) TableName() string { return "user_roles" }

// Post is an article written by a user.
type Post struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID    string            `gorm:"type:text;uniqueIndex;not null" json:"public_id"`
	AuthorID    int64             `gorm:"index:idx_posts_author;index:idx_posts_author_status,priority:1;not null" json:"author_id"`
	Author      *User             `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CategoryID  sql.NullInt64     `gorm:"index" json:"category_id"`
	Category    *Category         `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Title       string            `gorm:"type:text;not null" json:"title"`
	Slug        string            `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	Body        string            `gorm:"type:text" json:"body"`
	Status      models.PostStatus `gorm:"type:text;default:'draft';check:status IN ('draft', 'published', 'archived');index:idx_posts_status;index:idx_posts_author_status,priority:2" json:"status"`
	PublishedAt sql.NullTime      `gorm:"index:idx_posts_published,sort:desc" json:"published_at"`
	ViewCount   int64             `gorm:"default:0" json:"view_count"`
	Tags        []Tag             `gorm:"many2many:post_tags" json:"tags,omitempty"`
	Comments    []Comment         `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Post) TableName() string { return "posts" }

// BeforeCreate assigns a public identifier and the default status.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.PublicID == "" {
		p.PublicID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PostDraft
	}
	return nil
}

// Category organizes posts into a self-referential tree.
type Category struct {
	ID        int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string        `gorm:"type:text;not null" json:"name"`
	Slug      string        `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	ParentID  sql.NullInt64 `gorm:"index" json:"parent_id"`
	Parent    *Category     `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children  []Category    `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string { return "categories" }

// Comment is a reply on a post, optionally threaded under another comment.
type Comment struct {
	ID        int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64         `gorm:"index:idx_comments_post;not null" json:"post_id"`
	AuthorID  int64         `gorm:"index;not null" json:"author_id"`
	Author    *User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ParentID  sql.NullInt64 `gorm:"index" json:"parent_id"`
	Body      string        `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (Comment) TableName() string { return "comments" }

// Tag labels posts across categories.
type Tag struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:text;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Tag) TableName() string { return "tags" }
