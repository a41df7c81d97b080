package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/helmuth/esport/internal/index"
)

// Ping fetches the cluster banner.
func (c *Client) Ping(ctx context.Context) (*index.Health, error) {
	data, err := c.do(ctx, http.MethodGet, "/", nil, nil, "")
	if err != nil {
		return nil, err
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, err
	}
	return &index.Health{
		ClusterName: doc.Get("cluster_name").String(),
		Version:     doc.Get("version.number").String(),
	}, nil
}

// Health combines the cluster banner with the cluster health endpoint.
func (c *Client) Health(ctx context.Context) (*index.Health, error) {
	h, err := c.Ping(ctx)
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, http.MethodGet, "/_cluster/health", nil, nil, "")
	if err != nil {
		return nil, err
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, err
	}
	if name := doc.Get("cluster_name").String(); name != "" {
		h.ClusterName = name
	}
	h.Status = doc.Get("status").String()
	h.NumberOfNodes = int(doc.Get("number_of_nodes").Int())
	h.ActiveShards = int(doc.Get("active_shards").Int())
	return h, nil
}

// ListIndices returns every index sorted by name.
func (c *Client) ListIndices(ctx context.Context) ([]index.IndexInfo, error) {
	q := url.Values{
		"format": {"json"},
		"h":      {"index,health,status,docs.count,store.size"},
		"s":      {"index"},
	}
	data, err := c.do(ctx, http.MethodGet, "/_cat/indices", q, nil, "")
	if err != nil {
		return nil, err
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, err
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of indices", ErrInvalidResponse)
	}

	var infos []index.IndexInfo
	doc.ForEach(func(_, row gjson.Result) bool {
		infos = append(infos, index.IndexInfo{
			Name:      row.Get("index").String(),
			Health:    row.Get("health").String(),
			Status:    row.Get("status").String(),
			DocsCount: row.Get("docs\\.count").Int(),
			StoreSize: row.Get("store\\.size").String(),
		})
		return true
	})
	return infos, nil
}

// CreateIndex creates an index with default settings.
func (c *Client) CreateIndex(ctx context.Context, name string) error {
	if _, err := c.do(ctx, http.MethodPut, indexPath(name), nil, nil, ""); err != nil {
		return fmt.Errorf("creating index %s: %w", name, err)
	}
	return nil
}

// DeleteIndex deletes an index.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	if _, err := c.do(ctx, http.MethodDelete, indexPath(name), nil, nil, ""); err != nil {
		return fmt.Errorf("deleting index %s: %w", name, err)
	}
	return nil
}

// Settings returns the index settings object.
func (c *Client) Settings(ctx context.Context, name string) (json.RawMessage, error) {
	return c.indexSection(ctx, name, "_settings", "settings")
}

// Mapping returns the index mappings object.
func (c *Client) Mapping(ctx context.Context, name string) (json.RawMessage, error) {
	return c.indexSection(ctx, name, "_mapping", "mappings")
}

func (c *Client) indexSection(ctx context.Context, name, endpoint, key string) (json.RawMessage, error) {
	data, err := c.do(ctx, http.MethodGet, indexPath(name, endpoint), nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("reading %s of %s: %w", key, name, err)
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, err
	}
	section := doc.Get(gjson.Escape(name) + "." + key)
	if !section.Exists() {
		return nil, fmt.Errorf("%w: no %s for %s", ErrInvalidResponse, key, name)
	}
	return json.RawMessage(section.Raw), nil
}

// Count returns the number of documents in an index.
func (c *Client) Count(ctx context.Context, name string) (int64, error) {
	data, err := c.do(ctx, http.MethodGet, indexPath(name, "_count"), nil, nil, "")
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", name, err)
	}
	doc, err := parseBody(data)
	if err != nil {
		return 0, err
	}
	count := doc.Get("count")
	if !count.Exists() {
		return 0, fmt.Errorf("%w: missing count", ErrInvalidResponse)
	}
	return count.Int(), nil
}
