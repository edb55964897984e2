package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/inkwell/internal/domain/entity"
	repo "github.com/oksasatya/inkwell/internal/domain/repository"
)

var errBoom = errors.New("boom")

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*entity.User
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*entity.User{}}
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Email == entity.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type memPosts struct {
	mu     sync.Mutex
	nextID int64
	clock  time.Time
	byID   map[int64]*entity.Post
	err    error
}

func newMemPosts() *memPosts {
	return &memPosts{byID: map[int64]*entity.Post{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memPosts) Create(_ context.Context, p *entity.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	p.ID = m.nextID
	p.CreatedAt = m.clock
	p.UpdatedAt = m.clock
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPosts) GetByID(_ context.Context, id int64) (*entity.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) List(_ context.Context, f repo.PostFilter) ([]*entity.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*entity.Post{}
	for _, p := range m.byID {
		if f.OwnerID != 0 && p.OwnerID != f.OwnerID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPosts) Update(_ context.Context, p *entity.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	m.clock = m.clock.Add(time.Second)
	stored.Title = p.Title
	stored.Content = p.Content
	stored.UpdatedAt = m.clock
	p.UpdatedAt = m.clock
	return nil
}

func (m *memPosts) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type recordedEvent struct {
	Type string
	Body any
}

type fakePublisher struct {
	events []recordedEvent
	err    error
}

func (f *fakePublisher) PublishJSON(_ context.Context, msgType string, body any) error {
	f.events = append(f.events, recordedEvent{Type: msgType, Body: body})
	return f.err
}

type fakeSearch struct {
	upserted  []int64
	deleted   []int64
	deletedAt []time.Time
	results   []*entity.Post
	err       error
}

func (f *fakeSearch) Upsert(_ context.Context, p *entity.Post) error {
	f.upserted = append(f.upserted, p.ID)
	return f.err
}

func (f *fakeSearch) Delete(_ context.Context, id int64, at time.Time) error {
	f.deleted = append(f.deleted, id)
	f.deletedAt = append(f.deletedAt, at)
	return f.err
}

func (f *fakeSearch) Search(_ context.Context, _ string, _ int) ([]*entity.Post, error) {
	return f.results, f.err
}
