package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/banking/sar-workbench/internal/config"
	"github.com/banking/sar-workbench/internal/domain"
	elastic "github.com/elastic/go-elasticsearch/v8"
)

// SearchRepository indexes ledger events for full-text audit search
type SearchRepository struct {
	client *elastic.Client
	index  string
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(cfg config.ElasticsearchConfig) (*SearchRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// Verify connection
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	res.Body.Close()

	return &SearchRepository{
		client: client,
		index:  cfg.Index,
	}, nil
}

// IndexEvent indexes a ledger event, keyed by event id so re-delivery overwrites
func (r *SearchRepository) IndexEvent(ctx context.Context, event *domain.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(event.EventID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source domain.LedgerEvent `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchEvents runs a query_string search over indexed events, newest first.
// An empty query matches everything.
func (r *SearchRepository) SearchEvents(ctx context.Context, query string, from, size int) (*domain.LedgerPage, error) {
	if size <= 0 {
		size = 20
	}
	if from < 0 {
		from = 0
	}

	var match map[string]any
	if query == "" {
		match = map[string]any{"match_all": map[string]any{}}
	} else {
		match = map[string]any{"query_string": map[string]any{"query": query}}
	}
	esQuery := map[string]any{
		"from":  from,
		"size":  size,
		"query": match,
		"sort": []map[string]any{
			{"timestamp": "desc"},
			{"sequence": "desc"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to perform search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var result searchResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	events := make([]domain.LedgerEvent, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		events = append(events, hit.Source)
	}

	total := result.Hits.Total.Value
	return &domain.LedgerPage{
		Events:     events,
		TotalCount: total,
		Page:       from/size + 1,
		PageSize:   size,
		HasMore:    total > int64(from+size),
	}, nil
}
