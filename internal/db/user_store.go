// Package db provides GORM-based database operations for inkwell.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStore provides user and role operations.
type UserStore struct {
	store *Store
	db    *gorm.DB
}

// NewUserStore creates a new user store.
func NewUserStore(store *Store) *UserStore {
	return &UserStore{store: store, db: store.DB}
}

// CreateUser inserts a new user. A conflicting email yields ErrDuplicate.
func (s *UserStore) CreateUser(ctx context.Context, user *User) error {
	if user.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err)
	}
	log.Debug().Int64("id", user.ID).Str("email", user.Email).Msg("User created")
	return nil
}

// GetUser fetches a user by primary key with roles preloaded.
func (s *UserStore) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		First(&user, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetUserByPublicID fetches a user by its public identifier.
func (s *UserStore) GetUserByPublicID(ctx context.Context, publicID string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Where("public_id = ?", publicID).
		First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetUserByEmail fetches a user by email with roles preloaded.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// ListUsers returns a page of users ordered by creation time, newest
// first, along with the total count.
func (s *UserStore) ListUsers(ctx context.Context, limit, offset int) ([]User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&User{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var users []User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return users, total, nil
}

// GrantRole attaches a named role to a user inside a transaction.
// Granting an already-held role is a no-op.
func (s *UserStore) GrantRole(ctx context.Context, userID int64, roleName, grantedBy string) error {
	return s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var role Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			return fmt.Errorf("role %q: %w", roleName, translateError(err))
		}

		grant := UserRole{
			UserID:    userID,
			RoleID:    role.ID,
			GrantedBy: sqlNullString(grantedBy),
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error
	})
}

// RevokeRole removes a named role from a user. Revoking a role the user
// does not hold yields ErrNotFound.
func (s *UserStore) RevokeRole(ctx context.Context, userID int64, roleName string) error {
	return s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var role Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			return fmt.Errorf("role %q: %w", roleName, translateError(err))
		}

		res := tx.Where("user_id = ? AND role_id = ?", userID, role.ID).Delete(&UserRole{})
		if res.Error != nil {
			return translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetActive flips the active flag on a user.
func (s *UserStore) SetActive(ctx context.Context, id int64, active bool) error {
	res := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// sqlNullString creates a sql.NullString from a string.
func sqlNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
