package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// productsMapping returns the JSON mapping for the products index.
func productsMapping() (string, error) {
	keyword := map[string]interface{}{"type": "keyword"}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":   "text",
					"fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}},
				},
				"short_description": map[string]interface{}{"type": "text"},
				"description":       map[string]interface{}{"type": "text"},
				"slug":              keyword,
				"category":          keyword,
				"tags":              keyword,
				"username":          keyword,
				"status":            keyword,
				"upvotes":           map[string]interface{}{"type": "integer"},
				"views":             map[string]interface{}{"type": "long"},
				"featured_until":    map[string]interface{}{"type": "date"},
				"published_at":      map[string]interface{}{"type": "date"},
				"created_at":        map[string]interface{}{"type": "date"},
			},
		},
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling products mapping to JSON: %w", err)
	}
	return string(b), nil
}

// CreateProductsIndexIfNotExists creates the products index with its mapping if missing.
func CreateProductsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, index string, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup").With(zap.String("index_name", index))

	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error checking if index %s exists: %w", index, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		log.Info("Products index already exists")
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("error checking if index %s exists: status %s", index, res.Status())
	}

	mappingJSON, err := productsMapping()
	if err != nil {
		return err
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: index,
		Body:  strings.NewReader(mappingJSON),
	}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error creating index %s: %w", index, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index %s: status %s: %s", index, createRes.Status(), readErrorBody(createRes.Body))
	}

	log.Info("Products index created")
	return nil
}
