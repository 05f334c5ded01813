package core

import (
	"context"
	"fmt"
	"strings"

	"docvault.io/docvault/internal/store"
)

// SearchService is the retrieval engine: it embeds a query and ranks stored
// chunks by similarity, optionally scoped to one registered file type.
type SearchService struct {
	store       Store
	embedder    Embedder
	defaultTopK int
}

func NewSearchService(st Store, embedder Embedder, defaultTopK int) *SearchService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &SearchService{store: st, embedder: embedder, defaultTopK: defaultTopK}
}

// Search embeds query and returns up to topK chunks ranked by decreasing
// similarity. A non-empty typeFilter must name a registered type and
// restricts candidates before ranking. Fewer matches than topK is not an
// error; zero matches returns an empty list.
func (s *SearchService) Search(ctx context.Context, query, typeFilter string, topK int) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	if typeFilter != "" {
		ft, err := s.store.GetFileType(ctx, typeFilter)
		if err != nil {
			return nil, err
		}
		if ft == nil {
			return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, typeFilter)
		}
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vector) != s.embedder.Dimension() {
		return nil, fmt.Errorf("query embedding dimension mismatch: expected %d, got %d",
			s.embedder.Dimension(), len(vector))
	}

	results, err := s.store.NearestNeighbors(ctx, vector, topK, typeFilter)
	if err != nil {
		return nil, fmt.Errorf("nearest-neighbor search failed: %w", err)
	}
	return results, nil
}
