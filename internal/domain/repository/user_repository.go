package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/inkwell/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the interface for credential storage.
// Create fails with ErrDuplicateEmail when the normalized email is taken;
// lookups fail with ErrNotFound when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
