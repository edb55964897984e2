package repository

import (
	"context"

	"github.com/oksasatya/inkwell/internal/domain/entity"
)

// PostFilter narrows a listing. OwnerID zero means every owner.
type PostFilter struct {
	OwnerID int64
	Limit   int
	Offset  int
}

// PostRepository persists posts. List is ordered newest first.
// Update never changes the owner column.
type PostRepository interface {
	Create(ctx context.Context, p *entity.Post) error
	GetByID(ctx context.Context, id int64) (*entity.Post, error)
	List(ctx context.Context, f PostFilter) ([]*entity.Post, error)
	Update(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id int64) error
}
