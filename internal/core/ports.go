package core

import (
	"context"

	"docvault.io/docvault/internal/store"
	"docvault.io/docvault/internal/validation"
)

// Store is the persistence collaborator consumed by the services. The
// SQLite implementation backs production; the in-memory one backs tests.
// Type-name uniqueness is the store's job (a constraint, not a pre-check),
// so concurrent registrations of one name resolve to a single winner.
type Store interface {
	CreateFileType(ctx context.Context, name string, schema *validation.Schema) (*store.FileType, error)
	GetFileType(ctx context.Context, name string) (*store.FileType, error)
	CreateFile(ctx context.Context, rec *store.FileRecord) error
	GetFile(ctx context.Context, id string) (*store.FileRecord, error)
	DeleteFile(ctx context.Context, id string) error
	CreateChunks(ctx context.Context, fileID string, chunks []store.Chunk) error
	NearestNeighbors(ctx context.Context, vector []float32, topK int, typeFilter string) ([]store.SearchResult, error)
}

// Embedder converts text into a fixed-dimension vector. Both indexing and
// querying must go through the same Embedder so the vector spaces match.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
