package elastic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/helmuth/esport/internal/index"
)

// queryBody builds the request body shared by searches and scroll openings.
func queryBody(size int, query string, proj index.Projection) map[string]any {
	body := map[string]any{"size": size}
	if query != "" {
		body["query"] = map[string]any{
			"query_string": map[string]any{
				"query":                  query,
				"default_operator":       "AND",
				"allow_leading_wildcard": true,
			},
		}
	}
	if !proj.IsZero() {
		source := map[string]any{}
		if len(proj.Include) > 0 {
			source["includes"] = proj.Include
		}
		if len(proj.Exclude) > 0 {
			source["excludes"] = proj.Exclude
		}
		body["_source"] = source
	}
	return body
}

// Search runs one query_string search. An empty query matches every document.
func (c *Client) Search(ctx context.Context, req index.SearchRequest) (index.Batch, error) {
	body := queryBody(req.Size, req.Query, req.Projection)
	body["from"] = req.From

	data, err := c.doJSON(ctx, http.MethodPost, indexPath(req.Index, "_search"), nil, body)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", req.Index, err)
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, err
	}
	return hitsToBatch(doc)
}

// OpenCursor starts a scroll in index order.
func (c *Client) OpenCursor(ctx context.Context, req index.CursorRequest) (index.Batch, index.Cursor, error) {
	body := queryBody(req.Size, req.Query, req.Projection)
	body["sort"] = []string{"_doc"}

	data, err := c.doJSON(ctx, http.MethodPost, indexPath(req.Index, "_search"), url.Values{"scroll": {req.TTL}}, body)
	if err != nil {
		return nil, index.Cursor{}, err
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, index.Cursor{}, err
	}

	cur := index.Cursor{Token: doc.Get("_scroll_id").String(), TTL: req.TTL}
	batch, err := hitsToBatch(doc)
	if err != nil {
		return nil, cur, err
	}
	return batch, cur, nil
}

// Advance fetches the next scroll page.
func (c *Client) Advance(ctx context.Context, cur index.Cursor) (index.Batch, index.Cursor, error) {
	body := map[string]any{"scroll": cur.TTL, "scroll_id": cur.Token}

	data, err := c.doJSON(ctx, http.MethodPost, "/_search/scroll", nil, body)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, index.Cursor{}, fmt.Errorf("%w: %v", index.ErrCursorExpired, err)
		}
		return nil, index.Cursor{}, err
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, index.Cursor{}, err
	}

	next := index.Cursor{Token: doc.Get("_scroll_id").String(), TTL: cur.TTL}
	batch, err := hitsToBatch(doc)
	if err != nil {
		return nil, next, err
	}
	return batch, next, nil
}

// Release clears a scroll. A scroll the cluster no longer knows counts as released.
func (c *Client) Release(ctx context.Context, cur index.Cursor) error {
	body := map[string]any{"scroll_id": []string{cur.Token}}

	_, err := c.doJSON(ctx, http.MethodDelete, "/_search/scroll", nil, body)
	if err != nil && !errors.Is(err, index.ErrNotFound) {
		return err
	}
	return nil
}
