package elastic

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
)

// Get fetches one document. A missing document or index returns index.ErrNotFound.
func (c *Client) Get(ctx context.Context, name, id string) (*record.Record, error) {
	data, err := c.do(ctx, http.MethodGet, indexPath(name, "_doc", url.PathEscape(id)), nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", name, id, err)
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, err
	}
	if !doc.Get("found").Bool() {
		return nil, fmt.Errorf("getting %s/%s: %w", name, id, index.ErrNotFound)
	}
	return hitToRecord(doc)
}

// Put indexes one record. Records without an ID get one assigned by the cluster.
func (c *Client) Put(ctx context.Context, name string, rec *record.Record) (string, error) {
	method, path := http.MethodPost, indexPath(name, "_doc")
	if rec.ID != "" {
		method, path = http.MethodPut, indexPath(name, "_doc", url.PathEscape(rec.ID))
	}

	data, err := c.doJSON(ctx, method, path, nil, rec)
	if err != nil {
		return "", fmt.Errorf("indexing into %s: %w", name, err)
	}
	doc, err := parseBody(data)
	if err != nil {
		return "", err
	}
	return doc.Get("_id").String(), nil
}

// Bulk indexes records in one _bulk request.
func (c *Client) Bulk(ctx context.Context, name string, recs []*record.Record) (*index.BulkResult, error) {
	if len(recs) == 0 {
		return &index.BulkResult{}, nil
	}

	body, err := bulkBody(recs)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodPost, indexPath(name, "_bulk"), nil, body, "application/x-ndjson")
	if err != nil {
		return nil, fmt.Errorf("bulk indexing into %s: %w", name, err)
	}
	doc, err := parseBody(data)
	if err != nil {
		return nil, err
	}

	res := &index.BulkResult{}
	pos := 0
	doc.Get("items").ForEach(func(_, item gjson.Result) bool {
		op := item.Get("index")
		if e := op.Get("error"); e.Exists() {
			res.Failed++
			res.Errors = append(res.Errors, index.BulkItemError{
				Position: pos,
				ID:       op.Get("_id").String(),
				Status:   int(op.Get("status").Int()),
				Type:     e.Get("type").String(),
				Reason:   e.Get("reason").String(),
			})
		} else {
			res.Indexed++
		}
		pos++
		return true
	})
	if pos != len(recs) {
		return res, fmt.Errorf("%w: bulk response has %d items for %d records", ErrInvalidResponse, pos, len(recs))
	}
	return res, nil
}

func bulkBody(recs []*record.Record) ([]byte, error) {
	var buf bytes.Buffer
	for i, rec := range recs {
		meta, err := record.Canonical(map[string]any{"index": bulkMeta(rec)})
		if err != nil {
			return nil, err
		}
		src, err := rec.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encoding record %d: %w", i+1, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(src)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func bulkMeta(rec *record.Record) map[string]any {
	if rec.ID == "" {
		return map[string]any{}
	}
	return map[string]any{"_id": rec.ID}
}

// hitToRecord converts a hit or get response into a record keyed by _id.
func hitToRecord(hit gjson.Result) (*record.Record, error) {
	id := hit.Get("_id").String()
	src := hit.Get("_source")
	if !src.Exists() {
		return record.New(id), nil
	}
	rec, err := record.Decode(id, []byte(src.Raw))
	if err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", ErrInvalidResponse, id, err)
	}
	return rec, nil
}

func hitsToBatch(doc gjson.Result) (index.Batch, error) {
	hits := doc.Get("hits.hits")
	batch := make(index.Batch, 0, len(hits.Array()))
	var convErr error
	hits.ForEach(func(_, hit gjson.Result) bool {
		rec, err := hitToRecord(hit)
		if err != nil {
			convErr = err
			return false
		}
		batch = append(batch, rec)
		return true
	})
	if convErr != nil {
		return nil, convErr
	}
	return batch, nil
}
