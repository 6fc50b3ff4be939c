// File: internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"launchpad_backend/internal/config"
	platformElasticsearch "launchpad_backend/internal/platform/elasticsearch"
	"launchpad_backend/internal/product"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIndex is used when no index name is configured.
const DefaultIndex = "products"

// NopIndexer is used when search is disabled.
type NopIndexer struct{}

func (NopIndexer) SyncProduct(context.Context, *product.Product) error { return nil }
func (NopIndexer) DeleteProduct(context.Context, uuid.UUID) error      { return nil }

// Indexer keeps the products index in step with the store. Only published
// products are indexed; syncing any other product removes its document.
type Indexer struct {
	client *platformElasticsearch.ESClientWrapper
	index  string
	logger *zap.Logger
}

var (
	_ product.Indexer = (*Indexer)(nil)
	_ product.Indexer = NopIndexer{}
)

// NewIndexer returns a NopIndexer when client is nil.
func NewIndexer(client *platformElasticsearch.ESClientWrapper, cfg *config.Config, logger *zap.Logger) product.Indexer {
	if client == nil {
		return NopIndexer{}
	}
	return NewESIndexer(client, IndexName(cfg), logger)
}

func NewESIndexer(client *platformElasticsearch.ESClientWrapper, index string, logger *zap.Logger) *Indexer {
	return &Indexer{client: client, index: index, logger: logger.Named("search_indexer")}
}

// IndexName returns the configured products index.
func IndexName(cfg *config.Config) string {
	if cfg.ProductsIndex == "" {
		return DefaultIndex
	}
	return cfg.ProductsIndex
}

func (i *Indexer) SyncProduct(ctx context.Context, p *product.Product) error {
	if !product.IsPubliclyListed(p) {
		return i.DeleteProduct(ctx, p.ID)
	}
	body, err := marshalDocument(p)
	if err != nil {
		return err
	}
	res, err := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: p.ID.String(),
		Body:       bytes.NewReader(body),
	}.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("error indexing product %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return platformElasticsearch.ResponseError(res)
	}
	i.logger.Debug("Product indexed", zap.String("productID", p.ID.String()))
	return nil
}

// DeleteProduct removes the document. A missing document is not an error.
func (i *Indexer) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := esapi.DeleteRequest{
		Index:      i.index,
		DocumentID: id.String(),
	}.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("error deleting product %s from index: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return platformElasticsearch.ResponseError(res)
	}
	return nil
}

// SyncStats summarises a full reindex.
type SyncStats struct {
	Batches int
	Indexed int
	Removed int
	Failed  int
}

type bulkItem struct {
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

type bulkResponse struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]bulkItem `json:"items"`
}

// Reindex walks every product in batches, indexing published ones and
// removing the rest. refresh is passed through to the bulk API.
func (i *Indexer) Reindex(ctx context.Context, products product.Repository, batchSize int, refresh string) (SyncStats, error) {
	var stats SyncStats
	err := products.FindInBatches(ctx, batchSize, func(batch []product.Product) error {
		stats.Batches++
		var body bytes.Buffer
		for idx := range batch {
			p := &batch[idx]
			if !product.IsPubliclyListed(p) {
				fmt.Fprintf(&body, `{"delete":{"_index":%q,"_id":%q}}`+"\n", i.index, p.ID.String())
				continue
			}
			doc, err := marshalDocument(p)
			if err != nil {
				i.logger.Error("Failed to convert product to search document", zap.String("productID", p.ID.String()), zap.Error(err))
				stats.Failed++
				continue
			}
			fmt.Fprintf(&body, `{"index":{"_index":%q,"_id":%q}}`+"\n", i.index, p.ID.String())
			body.Write(doc)
			body.WriteByte('\n')
		}
		if body.Len() == 0 {
			return nil
		}

		res, err := esapi.BulkRequest{Body: &body, Refresh: refresh}.Do(ctx, i.client.Client)
		if err != nil {
			return fmt.Errorf("bulk request for batch %d: %w", stats.Batches, err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return platformElasticsearch.ResponseError(res)
		}

		var parsed bulkResponse
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("failed to parse bulk response for batch %d: %w", stats.Batches, err)
		}
		for _, item := range parsed.Items {
			for action, result := range item {
				switch {
				case len(result.Error) > 0:
					stats.Failed++
					i.logger.Error("Bulk item failed", zap.String("action", action), zap.ByteString("error", result.Error))
				case action == "delete":
					stats.Removed++
				default:
					stats.Indexed++
				}
			}
		}
		i.logger.Info("Search batch synced", zap.Int("batch", stats.Batches), zap.Int("products", len(batch)))
		return nil
	})
	return stats, err
}
