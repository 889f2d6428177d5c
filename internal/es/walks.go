package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/nz_walks/internal/models"
)

type WalkDocument struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	LengthInKm  float64 `json:"lengthInKm"`
	Region      string  `json:"region"`
	Difficulty  string  `json:"difficulty"`
}

func DocumentFromWalk(w models.Walk) WalkDocument {
	return WalkDocument{
		ID:          w.ID.String(),
		Name:        w.Name,
		Description: w.Description,
		LengthInKm:  w.LengthInKm,
		Region:      w.Region.Name,
		Difficulty:  w.Difficulty.Name,
	}
}

// WalkIndex keeps walks searchable in one Elasticsearch index.
type WalkIndex struct {
	Client *elasticsearch.Client
	Index  string
}

func (x *WalkIndex) IndexWalk(ctx context.Context, w models.Walk) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(DocumentFromWalk(w)); err != nil {
		return fmt.Errorf("encode walk document: %w", err)
	}

	res, err := x.Client.Index(x.Index, &buf,
		x.Client.Index.WithContext(ctx),
		x.Client.Index.WithDocumentID(w.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("index walk: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index walk", res.StatusCode, res.Body)
	}
	return nil
}

// DeleteWalk removes a walk document. A missing document is not an error.
func (x *WalkIndex) DeleteWalk(ctx context.Context, id string) error {
	res, err := x.Client.Delete(x.Index, id, x.Client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete walk: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete walk", res.StatusCode, res.Body)
	}
	return nil
}

func (x *WalkIndex) SearchWalks(ctx context.Context, query string, from, size int) (int64, []WalkDocument, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description", "region", "difficulty"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := x.Client.Search(
		x.Client.Search.WithContext(ctx),
		x.Client.Search.WithIndex(x.Index),
		x.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search walks: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, responseError("search walks", res.StatusCode, res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source WalkDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search: %w", err)
	}

	docs := make([]WalkDocument, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

func responseError(op string, status int, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 4096))
	return fmt.Errorf("%s: elasticsearch status %d: %s", op, status, bytes.TrimSpace(b))
}
