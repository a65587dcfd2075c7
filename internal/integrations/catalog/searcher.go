package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/models"
)

var (
	ErrMissingIndex  = errors.New("fixtures index is required")
	ErrSearchFailed  = errors.New("CATALOG_SEARCH_FAILED")
	ErrSearchTimeout = errors.New("CATALOG_SEARCH_TIMEOUT")
)

const defaultPageSize = 20

// Searcher runs fixture searches against an Elasticsearch index.
type Searcher struct {
	client *elasticsearch.Client
	index  string
	size   int
	logger logger.Logger
}

type Option func(*Searcher)

func WithPageSize(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.size = n
		}
	}
}

func NewSearcher(client *elasticsearch.Client, index string, log logger.Logger, opts ...Option) *Searcher {
	s := &Searcher{
		client: client,
		index:  index,
		size:   defaultPageSize,
		logger: log.WithFields(map[string]interface{}{"component": "catalog", "index": index}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildQuery returns the search body for one phrase. Both team names must
// appear for multi-word phrases.
func BuildQuery(query string, size int) map[string]interface{} {
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":    query,
							"fields":   []string{"home_team^2", "away_team^2", "league"},
							"type":     "cross_fields",
							"operator": "and",
						},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"date": map[string]interface{}{"order": "asc", "unmapped_type": "date"}},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source models.Fixture `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *Searcher) Search(ctx context.Context, query string) ([]models.Fixture, error) {
	if s.index == "" {
		return nil, ErrMissingIndex
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Fixture{}, nil
	}

	body, err := json.Marshal(BuildQuery(query, s.size))
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrSearchFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	fixtures := make([]models.Fixture, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		f := hit.Source
		if f.ID == "" {
			f.ID = hit.ID
		}
		fixtures = append(fixtures, f)
	}

	s.logger.Debug("Catalog search", map[string]interface{}{
		"query": query,
		"hits":  len(fixtures),
	})
	return fixtures, nil
}
