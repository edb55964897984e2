package elasticsearch

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/inkwell/internal/domain/entity"
)

func TestDocumentRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &entity.Post{ID: 9, Title: "Hi There", Content: "This is long enough", OwnerID: 2, OwnerEmail: "a@x.com", CreatedAt: created}

	got := toDocument(p).toPost()
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.OwnerID, got.OwnerID)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestDecodeHits(t *testing.T) {
	body := `{"hits":{"hits":[
		{"_id":"3","_source":{"id":3,"title":"Gophers","content":"All about gophers","owner_id":1,"created_at":"2026-01-02T03:04:05Z"}},
		{"_id":"1","_source":{"id":1,"title":"Go tips","content":"Channels and more","owner_id":4,"created_at":"2026-01-01T00:00:00Z"}}
	]}}`
	posts, err := decodeHits(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(3), posts[0].ID)
	assert.Equal(t, "Go tips", posts[1].Title)
	assert.Equal(t, int64(4), posts[1].OwnerID)
}

func TestDecodeHits_Garbage(t *testing.T) {
	_, err := decodeHits(strings.NewReader("<html>"))
	assert.Error(t, err)
}
