package elasticsearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// postsMapping keeps ids and timestamps out of full-text analysis.
const postsMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "long"},
      "title":       {"type": "text"},
      "content":     {"type": "text"},
      "owner_id":    {"type": "long"},
      "owner_email": {"type": "keyword"},
      "created_at":  {"type": "date"}
    }
  }
}`

// NewClient builds a client with bounded dial/header timeouts and optional
// basic auth. Transient 502/503/504 answers are retried by the transport.
func NewClient(addrs []string, username, password string) (*es.Client, error) {
	return es.NewClient(es.Config{
		Addresses:     addrs,
		Username:      username,
		Password:      password,
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		MaxRetries:    2,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	})
}

// EnsureIndex creates the index with the posts mapping unless it exists.
func (x *PostIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	exists, err := esapi.IndicesExistsRequest{Index: []string{x.Index}}.Do(c, x.Client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", x.Index, err)
	}
	_ = exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}
	if exists.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %s: %s", x.Index, exists.Status())
	}

	res, err := esapi.IndicesCreateRequest{Index: x.Index, Body: strings.NewReader(postsMapping)}.Do(c, x.Client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", x.Index, err)
	}
	defer func() { _ = res.Body.Close() }()
	// a concurrent creator wins the race; that is fine
	if res.IsError() && !strings.Contains(readSnippet(res), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", x.Index, res.Status())
	}
	return nil
}

func readSnippet(res *esapi.Response) string {
	buf := make([]byte, 512)
	n, _ := res.Body.Read(buf)
	return string(buf[:n])
}
