package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/inkwell/internal/domain/entity"
	"github.com/oksasatya/inkwell/pkg/events"
)

type recordingIndex struct {
	upserts []*entity.Post
	deletes []int64
	deleted []time.Time
	err     error
}

func (r *recordingIndex) Upsert(_ context.Context, p *entity.Post) error {
	r.upserts = append(r.upserts, p)
	return r.err
}

func (r *recordingIndex) Delete(_ context.Context, id int64, at time.Time) error {
	r.deletes = append(r.deletes, id)
	r.deleted = append(r.deleted, at)
	return r.err
}

func encode(t *testing.T, ev events.PostEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestApply_Upsert(t *testing.T) {
	idx := &recordingIndex{}
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	body := encode(t, events.PostEvent{
		Type: events.PostUpserted, PostID: 4, OwnerID: 2, OwnerEmail: "a@x.com",
		Title: "Hello", Content: "Hello there world", CreatedAt: created, OccurredAt: created.Add(time.Hour),
	})

	require.NoError(t, apply(context.Background(), idx, "", body))
	require.Len(t, idx.upserts, 1)
	got := idx.upserts[0]
	assert.Equal(t, int64(4), got.ID)
	assert.Equal(t, int64(2), got.OwnerID)
	assert.Equal(t, "Hello", got.Title)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestApply_DeleteUsesHeaderTypeWhenBodyHasNone(t *testing.T) {
	idx := &recordingIndex{}
	body := encode(t, events.PostEvent{PostID: 9})
	require.NoError(t, apply(context.Background(), idx, events.PostDeleted, body))
	assert.Equal(t, []int64{9}, idx.deletes)
}

func TestApply_CarriesEventTimeAsVersion(t *testing.T) {
	idx := &recordingIndex{}
	upAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	delAt := upAt.Add(time.Minute)

	require.NoError(t, apply(context.Background(), idx, "", encode(t, events.PostEvent{
		Type: events.PostUpserted, PostID: 4, Title: "Hello", Content: "Hello there world", OccurredAt: upAt,
	})))
	require.NoError(t, apply(context.Background(), idx, "", encode(t, events.PostEvent{
		Type: events.PostDeleted, PostID: 4, OccurredAt: delAt,
	})))

	require.Len(t, idx.upserts, 1)
	assert.True(t, idx.upserts[0].UpdatedAt.Equal(upAt))
	require.Len(t, idx.deleted, 1)
	assert.True(t, idx.deleted[0].Equal(delAt))
}

func TestApply_Poison(t *testing.T) {
	idx := &recordingIndex{}
	assert.ErrorIs(t, apply(context.Background(), idx, "", []byte("{not json")), errPoison)
	assert.ErrorIs(t, apply(context.Background(), idx, events.PostDeleted, encode(t, events.PostEvent{})), errPoison)
	assert.ErrorIs(t, apply(context.Background(), idx, "post.renamed", encode(t, events.PostEvent{PostID: 1})), errPoison)
	assert.Empty(t, idx.upserts)
	assert.Empty(t, idx.deletes)
}

func TestApply_IndexFailureIsRetryable(t *testing.T) {
	idx := &recordingIndex{err: errors.New("es down")}
	err := apply(context.Background(), idx, "", encode(t, events.PostEvent{Type: events.PostDeleted, PostID: 3}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errPoison)
}
