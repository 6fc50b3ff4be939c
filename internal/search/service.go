// File: internal/search/service.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	platformElasticsearch "launchpad_backend/internal/platform/elasticsearch"
	"launchpad_backend/internal/product"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const maxQueryLength = 100

// Query is a full-text product search.
type Query struct {
	Q        string `form:"q"`
	Category string `form:"category"`
	Tag      string `form:"tag"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type Service interface {
	Search(ctx context.Context, query Query) ([]product.Product, *common.Pagination, error)
}

// ServiceImplementation searches the products index and falls back to the
// database when the index is disabled or unavailable.
type ServiceImplementation struct {
	client   *platformElasticsearch.ESClientWrapper
	index    string
	products product.Repository
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

func NewService(client *platformElasticsearch.ESClientWrapper, products product.Repository, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		client:   client,
		index:    IndexName(cfg),
		products: products,
		logger:   logger.Named("search_service"),
	}
}

func (s *ServiceImplementation) Search(ctx context.Context, query Query) ([]product.Product, *common.Pagination, error) {
	query.Q = strings.TrimSpace(query.Q)
	if query.Q == "" {
		return nil, nil, common.ErrBadRequest.WithDetails("The q parameter is required.")
	}
	if utf8.RuneCountInString(query.Q) > maxQueryLength {
		return nil, nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("The q parameter may not be longer than %d characters.", maxQueryLength))
	}
	if tag := strings.TrimSpace(query.Tag); tag != "" {
		query.Tag = slug.Make(tag)
	}

	if s.client != nil {
		products, pagination, err := s.searchIndex(ctx, query)
		if err == nil {
			return products, pagination, nil
		}
		s.logger.Warn("Search index query failed; falling back to database", zap.Error(err))
	}
	return s.products.SearchPublished(ctx, query.Q, product.ListQuery{
		Category: query.Category,
		Tag:      query.Tag,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
}

func buildSearchBody(query Query, page common.PaginationQuery) ([]byte, error) {
	filters := []map[string]interface{}{
		{"term": map[string]interface{}{"status": string(product.StatusPublished)}},
	}
	if query.Category != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"category": query.Category}})
	}
	if query.Tag != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"tags": query.Tag}})
	}
	body := map[string]interface{}{
		"from":             page.Offset(),
		"size":             page.Limit(),
		"_source":          false,
		"track_total_hits": true,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{{
					"multi_match": map[string]interface{}{
						"query":     query.Q,
						"fields":    []string{"name^3", "short_description^2", "tags^2", "description"},
						"fuzziness": "AUTO",
					},
				}},
				"filter": filters,
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"upvotes": "desc"}},
	}
	return json.Marshal(body)
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ServiceImplementation) searchIndex(ctx context.Context, query Query) ([]product.Product, *common.Pagination, error) {
	page := common.PaginationQuery{Page: query.Page, PageSize: query.PageSize}.Normalize()
	body, err := buildSearchBody(query, page)
	if err != nil {
		return nil, nil, err
	}
	res, err := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, s.client.Client)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, nil, platformElasticsearch.ResponseError(res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	found, err := s.products.FindPublishedByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	// Keep the index's ranking; drop hits that are no longer published.
	byID := make(map[uuid.UUID]product.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, common.NewPagination(parsed.Hits.Total.Value, page.Page, page.PageSize), nil
}
