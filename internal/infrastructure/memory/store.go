package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/inkwell/internal/domain/entity"
	"github.com/oksasatya/inkwell/internal/domain/repository"
)

// Store is a dev-only fallback when Postgres is not configured. Users and
// posts share one lock so post reads can join the owner email the way the
// SQL repository does.
type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	lastUserID int64
	lastPostID int64
	users      map[int64]entity.User
	posts      map[int64]entity.Post
}

// NewStore constructs an empty store. now may be nil.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		now:   now,
		users: make(map[int64]entity.User),
		posts: make(map[int64]entity.Post),
	}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }
func (s *Store) Posts() *PostRepository { return &PostRepository{s: s} }

type UserRepository struct{ s *Store }

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	email := entity.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == email {
			return repository.ErrDuplicateEmail
		}
	}
	s.lastUserID++
	u.ID = s.lastUserID
	u.Email = email
	u.CreatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = entity.NormalizeEmail(email)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Delete removes a user and cascades to their posts, matching the
// ON DELETE CASCADE on posts.owner_id.
func (r *UserRepository) Delete(id int64) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	for pid, p := range r.s.posts {
		if p.OwnerID == id {
			delete(r.s.posts, pid)
		}
	}
}

type PostRepository struct{ s *Store }

var _ repository.PostRepository = (*PostRepository)(nil)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (r *PostRepository) Create(ctx context.Context, p *entity.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.users[p.OwnerID]
	if !ok {
		return repository.ErrNotFound
	}
	s.lastPostID++
	now := s.now()
	p.ID = s.lastPostID
	p.CreatedAt = now
	p.UpdatedAt = now
	p.OwnerEmail = owner.Email
	s.posts[p.ID] = *p
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*entity.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.withOwner(p), nil
}

func (r *PostRepository) List(ctx context.Context, f repository.PostFilter) ([]*entity.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := max(f.Offset, 0)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*entity.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		if f.OwnerID != 0 && p.OwnerID != f.OwnerID {
			continue
		}
		all = append(all, r.s.withOwner(p))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if offset >= len(all) {
		return []*entity.Post{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

// Update writes title and content only.
func (r *PostRepository) Update(ctx context.Context, p *entity.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.posts[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = p.Title
	stored.Content = p.Content
	stored.UpdatedAt = r.s.now()
	r.s.posts[p.ID] = stored
	p.UpdatedAt = stored.UpdatedAt
	p.OwnerID = stored.OwnerID
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.posts, id)
	return nil
}

// withOwner copies p and fills the owner email. Caller holds the lock.
func (s *Store) withOwner(p entity.Post) *entity.Post {
	if u, ok := s.users[p.OwnerID]; ok {
		p.OwnerEmail = u.Email
	}
	return &p
}
