package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/inkwell/internal/domain/entity"
	repo "github.com/oksasatya/inkwell/internal/domain/repository"
	"github.com/oksasatya/inkwell/pkg/events"
	"github.com/oksasatya/inkwell/pkg/helpers"
)

// PostSearcher is the search projection of posts.
type PostSearcher interface {
	Upsert(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id int64, at time.Time) error
	Search(ctx context.Context, q string, size int) ([]*entity.Post, error)
}

// EventPublisher puts post lifecycle events on the wire.
type EventPublisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

// PostService gates every mutation on ownership. Cache, Search and Events are
// optional; a nil value disables that concern.
type PostService struct {
	Repo   repo.PostRepository
	Cache  *helpers.JSONCache[entity.Post]
	Search PostSearcher
	Events EventPublisher
	Logger *logrus.Logger
}

func NewPostService(repo repo.PostRepository, rdb redis.Cmdable, cacheTTL time.Duration, search PostSearcher, pub EventPublisher, logger *logrus.Logger) *PostService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &PostService{
		Repo:   repo,
		Cache:  helpers.NewJSONCache[entity.Post](rdb, "post:", cacheTTL),
		Search: search,
		Events: pub,
		Logger: logger,
	}
}

// Create stores a post owned by the resolved identity. There is no way to
// pass an owner from request input.
func (s *PostService) Create(ctx context.Context, owner entity.SafeUser, title, content string) (*entity.Post, error) {
	if owner.ID <= 0 {
		return nil, ErrUnauthenticated
	}
	p, problems := entity.NewPost(owner.ID, title, content)
	if problems != nil {
		return nil, newValidationError(problems)
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	p.OwnerEmail = owner.Email
	s.project(ctx, events.PostUpserted, p)
	return p, nil
}

// Get reads one post, through the cache when configured.
func (s *PostService) Get(ctx context.Context, id int64) (*entity.Post, error) {
	cached, found, err := s.Cache.Get(ctx, id)
	if err != nil {
		s.Logger.WithError(err).WithField("post_id", id).Warn("post cache read failed")
	} else if found {
		return cached, nil
	}
	gen, genErr := s.Cache.Generation(ctx, id)

	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}

	if genErr == nil {
		if _, err := s.Cache.SetIfCurrent(ctx, id, gen, p); err != nil {
			s.Logger.WithError(err).WithField("post_id", id).Warn("post cache write failed")
		}
	}
	return p, nil
}

// List returns posts newest first, optionally restricted to one owner.
func (s *PostService) List(ctx context.Context, f repo.PostFilter) ([]*entity.Post, error) {
	posts, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Update revises title and content. Ownership is checked before the input
// is validated.
func (s *PostService) Update(ctx context.Context, id, requesterID int64, title, content string) (*entity.Post, error) {
	p, err := s.loadOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if problems := p.Revise(title, content); problems != nil {
		return nil, newValidationError(problems)
	}
	if err := s.Repo.Update(ctx, p); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	s.invalidate(ctx, id)
	s.project(ctx, events.PostUpserted, p)
	return p, nil
}

// Delete removes an owned post. Deleting a post that is already gone is ErrPostNotFound.
func (s *PostService) Delete(ctx context.Context, id, requesterID int64) error {
	p, err := s.loadOwned(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	s.invalidate(ctx, id)
	s.project(ctx, events.PostDeleted, p)
	return nil
}

// SearchPosts queries the search projection.
func (s *PostService) SearchPosts(ctx context.Context, q string, size int) ([]*entity.Post, error) {
	if s.Search == nil {
		return nil, ErrSearchUnavailable
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, newValidationError(map[string]string{"q": "is required"})
	}
	posts, err := s.Search.Search(ctx, q, size)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}

// Authorize reports whether requesterID may mutate post id, without changing
// anything. Handlers call it before decoding a request body.
func (s *PostService) Authorize(ctx context.Context, id, requesterID int64) error {
	_, err := s.loadOwned(ctx, id, requesterID)
	return err
}

// loadOwned reads straight from the repository so the ownership gate never
// runs against a cached row.
func (s *PostService) loadOwned(ctx context.Context, id, requesterID int64) (*entity.Post, error) {
	if requesterID <= 0 {
		return nil, ErrUnauthenticated
	}
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	if !p.OwnedBy(requesterID) {
		s.Logger.WithFields(logrus.Fields{"post_id": id, "owner_id": p.OwnerID, "requester_id": requesterID}).Info("post mutation forbidden")
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *PostService) invalidate(ctx context.Context, id int64) {
	if err := s.Cache.Invalidate(ctx, id); err != nil {
		s.Logger.WithError(err).WithField("post_id", id).Warn("post cache invalidation failed")
	}
}

// deletedAt orders a delete after the last revision the index may hold, even
// when the database clock runs ahead of ours.
func deletedAt(p *entity.Post) time.Time {
	now := time.Now().UTC()
	if !now.After(p.UpdatedAt) {
		return p.UpdatedAt.Add(time.Nanosecond)
	}
	return now
}

// project forwards a change to the event queue, or straight to the search
// index when no queue is configured. Failures are logged only.
func (s *PostService) project(ctx context.Context, eventType string, p *entity.Post) {
	switch {
	case s.Events != nil:
		ev := events.PostEvent{Type: eventType, PostID: p.ID, OwnerID: p.OwnerID, OccurredAt: time.Now().UTC()}
		if eventType == events.PostUpserted {
			ev.OwnerEmail = p.OwnerEmail
			ev.Title = p.Title
			ev.Content = p.Content
			ev.CreatedAt = p.CreatedAt
		}
		if err := s.Events.PublishJSON(ctx, eventType, ev); err != nil {
			s.Logger.WithError(err).WithField("post_id", p.ID).Warn("publish post event failed")
		}
	case s.Search != nil:
		var err error
		if eventType == events.PostDeleted {
			err = s.Search.Delete(ctx, p.ID, deletedAt(p))
		} else {
			err = s.Search.Upsert(ctx, p)
		}
		if err != nil {
			s.Logger.WithError(err).WithField("post_id", p.ID).Warn("search index update failed")
		}
	}
}
