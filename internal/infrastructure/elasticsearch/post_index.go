package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/inkwell/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// PostIndex keeps a searchable projection of posts in one Elasticsearch index.
type PostIndex struct {
	Client *es.Client
	Index  string
}

func NewPostIndex(client *es.Client, index string) *PostIndex {
	return &PostIndex{Client: client, Index: index}
}

type postDocument struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	OwnerID    int64     `json:"owner_id"`
	OwnerEmail string    `json:"owner_email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toDocument(p *entity.Post) postDocument {
	return postDocument{
		ID:         p.ID,
		Title:      p.Title,
		Content:    p.Content,
		OwnerID:    p.OwnerID,
		OwnerEmail: p.OwnerEmail,
		CreatedAt:  p.CreatedAt.UTC(),
	}
}

func (d postDocument) toPost() *entity.Post {
	return &entity.Post{
		ID:         d.ID,
		Title:      d.Title,
		Content:    d.Content,
		OwnerID:    d.OwnerID,
		OwnerEmail: d.OwnerEmail,
		CreatedAt:  d.CreatedAt,
	}
}

// Upsert indexes p under its id. Documents carry an external version taken
// from UpdatedAt, so a late write for an older revision is ignored.
func (x *PostIndex) Upsert(ctx context.Context, p *entity.Post) error {
	b, err := json.Marshal(toDocument(p))
	if err != nil {
		return err
	}
	at := p.UpdatedAt
	if at.IsZero() {
		at = p.CreatedAt
	}
	req := esapi.IndexRequest{
		Index:      x.Index,
		DocumentID: strconv.FormatInt(p.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	if v, ok := versionOf(at); ok {
		req.Version = &v
		req.VersionType = "external"
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.Client)
	if err != nil {
		return fmt.Errorf("index post %d: %w", p.ID, err)
	}
	defer func() { _ = res.Body.Close() }()
	// 409 means the index already holds this revision or a newer one
	if res.IsError() && res.StatusCode != http.StatusConflict {
		return fmt.Errorf("index post %d: %s", p.ID, res.Status())
	}
	return nil
}

// Delete removes the document for id as of at. A document that is already
// gone, or was rewritten after at, is not an error. A zero at deletes
// unconditionally.
func (x *PostIndex) Delete(ctx context.Context, id int64, at time.Time) error {
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: strconv.FormatInt(id, 10)}
	if v, ok := versionOf(at); ok {
		req.Version = &v
		req.VersionType = "external"
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.Client)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound && res.StatusCode != http.StatusConflict {
		return fmt.Errorf("delete post %d: %s", id, res.Status())
	}
	return nil
}

func versionOf(at time.Time) (int, bool) {
	if at.IsZero() {
		return 0, false
	}
	return int(at.UnixNano()), true
}

// Search runs a multi_match over title and content, newest first on equal score.
func (x *PostIndex) Search(ctx context.Context, q string, size int) ([]*entity.Post, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^2", "content"},
			},
		},
		"sort": []any{"_score", map[string]any{"created_at": "desc"}},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.Client.Search(
		x.Client.Search.WithContext(c),
		x.Client.Search.WithIndex(x.Index),
		x.Client.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search posts: %s", res.Status())
	}
	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) ([]*entity.Post, error) {
	var parsed struct {
		Hits struct {
			Hits []struct {
				Source postDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]*entity.Post, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source.toPost())
	}
	return out, nil
}
