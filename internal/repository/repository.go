// Package repository declares the storage interfaces the service layer depends on.
// Concrete implementations live in subpackages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/accessai/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ProgressFunc mutates a user's points, level or achievements.
// It runs inside the storage transaction; returning an error aborts the update.
type ProgressFunc func(u *model.User) error

type UserRepository interface {
	// Create inserts a new account, assigning ID and timestamps.
	// A duplicate email yields an apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub links a GitHub identity to an account, matching first by
	// GitHub ID and then by email, creating the account if neither exists.
	// created reports whether a new account was inserted.
	UpsertGitHub(ctx context.Context, user *model.User) (created bool, err error)
	// UpdateProgress applies fn to the stored user atomically and persists
	// points, level, achievements and updated_at.
	UpdateProgress(ctx context.Context, id string, fn ProgressFunc) (*model.User, error)
	// ListByPoints orders by points desc, most recent activity first on ties.
	ListByPoints(ctx context.Context, opts ListOptions) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}
