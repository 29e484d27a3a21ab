// Package qdrant implements VectorStore against a Qdrant server's REST API.
// All points live in one collection; namespace isolation is enforced with a
// payload filter on every search and delete.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

// Default values
const (
	DefaultEndpoint   = "http://localhost:6333"
	DefaultCollection = "studyrag"
)

// Config contains Qdrant store configuration.
type Config struct {
	Endpoint   string
	APIKey     string
	Collection string
	Dimensions int
}

// Store implements the VectorStore interface for Qdrant.
type Store struct {
	config Config
	client *http.Client
}

// New creates a Qdrant store and ensures the collection exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant requires dimensions to be set")
	}

	s := &Store{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "qdrant"
}

// Dimensions returns the collection's vector dimensions.
func (s *Store) Dimensions() int {
	return s.config.Dimensions
}

// ensureCollection creates the collection if it does not exist yet.
func (s *Store) ensureCollection(ctx context.Context) error {
	status, _, err := s.do(ctx, "GET", "/collections/"+s.config.Collection, nil)
	if err != nil {
		return fmt.Errorf("qdrant not reachable at %s: %w", s.config.Endpoint, err)
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.config.Dimensions,
			"distance": "Cosine",
		},
	}
	status, respBody, err := s.do(ctx, "PUT", "/collections/"+s.config.Collection, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("failed to create collection: status %d: %s", status, respBody)
	}
	return nil
}

// point is one Qdrant point in upsert requests.
type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Upsert writes records into the namespace in sub-batches of at most
// UpsertBatchSize. A failing sub-batch is reported with its index.
func (s *Store) Upsert(ctx context.Context, ns types.Namespace, records []*types.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	for i, r := range records {
		if len(r.Values) != s.config.Dimensions {
			return fmt.Errorf("record %d has %d dimensions, collection expects %d", i, len(r.Values), s.config.Dimensions)
		}
	}

	for start := 0; start < len(records); start += provider.UpsertBatchSize {
		end := start + provider.UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.upsertBatch(ctx, ns, records[start:end]); err != nil {
			return fmt.Errorf("batch %d (records %d-%d): %w", start/provider.UpsertBatchSize, start, end-1, err)
		}
	}

	return nil
}

// upsertBatch writes one sub-batch with wait=true so a returned success
// means the points are persisted.
func (s *Store) upsertBatch(ctx context.Context, ns types.Namespace, records []*types.VectorRecord) error {
	points := make([]point, len(records))
	for i, r := range records {
		payload := map[string]any{
			types.MetaNamespace: string(ns),
			"vector_id":         r.ID,
		}
		for k, v := range r.Metadata {
			payload[k] = v
		}
		points[i] = point{
			// Qdrant requires UUID or integer point ids; the stable record id
			// is carried in the payload instead.
			ID:      uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.ID)).String(),
			Vector:  r.Values,
			Payload: payload,
		}
	}

	body := map[string]any{"points": points}
	status, respBody, err := s.do(ctx, "PUT", "/collections/"+s.config.Collection+"/points?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("upsert failed: status %d: %s", status, respBody)
	}
	return nil
}

// searchResponse is the Qdrant points/search response body.
type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float32        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Query returns the topK most similar passages inside the namespace.
func (s *Store) Query(ctx context.Context, ns types.Namespace, vector []float32, topK int) ([]*types.SearchHit, error) {
	if len(vector) != s.config.Dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, collection expects %d", len(vector), s.config.Dimensions)
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   types.MetaNamespace,
					"match": map[string]any{"value": string(ns)},
				},
			},
		},
	}

	status, respBody, err := s.do(ctx, "POST", "/collections/"+s.config.Collection+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search failed: status %d: %s", status, respBody)
	}

	var resp searchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]*types.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		metadata := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			if sv, ok := v.(string); ok {
				metadata[k] = sv
			}
		}

		id := metadata["vector_id"]
		if id == "" {
			id = fmt.Sprint(r.ID)
		}

		hits = append(hits, &types.SearchHit{
			ID:       id,
			Score:    r.Score,
			Text:     metadata[types.MetaText],
			Metadata: metadata,
		})
	}

	return hits, nil
}

// DeleteByDocument removes all points of a document from the namespace.
func (s *Store) DeleteByDocument(ctx context.Context, ns types.Namespace, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   types.MetaNamespace,
					"match": map[string]any{"value": string(ns)},
				},
				{
					"key":   types.MetaDocumentID,
					"match": map[string]any{"value": documentID},
				},
			},
		},
	}

	status, respBody, err := s.do(ctx, "POST", "/collections/"+s.config.Collection+"/points/delete?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("delete failed: status %d: %s", status, respBody)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// do sends one JSON request and returns the status and raw body.
func (s *Store) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	url := strings.TrimSuffix(s.config.Endpoint, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("api-key", s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, respBody, nil
}

// Ensure Store implements VectorStore interface
var _ provider.VectorStore = (*Store)(nil)
