package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docvault.io/docvault/internal/utils"
	"docvault.io/docvault/internal/validation"
)

// MemoryStore is an in-memory Store used by tests and local development. It
// is safe for concurrent use and mirrors the SQLiteStore semantics,
// including write-once type names and all-or-nothing chunk batches.
type MemoryStore struct {
	mu     sync.RWMutex
	types  map[string]*FileType
	files  map[string]*FileRecord
	chunks map[string][]Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		types:  make(map[string]*FileType),
		files:  make(map[string]*FileRecord),
		chunks: make(map[string][]Chunk),
	}
}

func (s *MemoryStore) CreateFileType(ctx context.Context, name string, schema *validation.Schema) (*FileType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.types[name]; ok {
		return existing, ErrTypeExists
	}
	ft := &FileType{
		ID:        uuid.NewString(),
		Name:      name,
		Schema:    schema,
		CreatedAt: time.Now().UTC(),
	}
	s.types[name] = ft
	return ft, nil
}

func (s *MemoryStore) GetFileType(ctx context.Context, name string) (*FileType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[name], nil
}

func (s *MemoryStore) CreateFile(ctx context.Context, rec *FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.UploadedAt = time.Now().UTC()
	clone := *rec
	s.files[rec.ID] = &clone
	return nil
}

func (s *MemoryStore) GetFile(ctx context.Context, id string) (*FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.files[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	for _, ft := range s.types {
		if ft.ID == clone.TypeID {
			clone.TypeName = ft.Name
			break
		}
	}
	return &clone, nil
}

func (s *MemoryStore) DeleteFile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return ErrFileNotFound
	}
	delete(s.files, id)
	delete(s.chunks, id)
	return nil
}

func (s *MemoryStore) CreateChunks(ctx context.Context, fileID string, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[fileID]; !ok {
		return fmt.Errorf("cannot store chunks: %w", ErrFileNotFound)
	}
	batch := make([]Chunk, len(chunks))
	copy(batch, chunks)
	s.chunks[fileID] = append(s.chunks[fileID], batch...)
	return nil
}

func (s *MemoryStore) NearestNeighbors(ctx context.Context, vector []float32, topK int, typeFilter string) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var typeID string
	if typeFilter != "" {
		ft, ok := s.types[typeFilter]
		if !ok {
			return nil, nil
		}
		typeID = ft.ID
	}

	var results []SearchResult
	for fileID, chunks := range s.chunks {
		if typeFilter != "" {
			rec, ok := s.files[fileID]
			if !ok || rec.TypeID != typeID {
				continue
			}
		}
		for _, chunk := range chunks {
			if len(chunk.Embedding) != len(vector) {
				continue
			}
			similarity, err := utils.CosineSimilarity(vector, chunk.Embedding)
			if err != nil {
				continue
			}
			results = append(results, SearchResult{
				FileID:     fileID,
				ChunkIndex: chunk.Index,
				ChunkText:  chunk.Text,
				Similarity: similarity,
			})
		}
	}

	rankResults(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Files returns a snapshot of every stored record. Test helper.
func (s *MemoryStore) Files() []*FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*FileRecord, 0, len(s.files))
	for _, rec := range s.files {
		clone := *rec
		out = append(out, &clone)
	}
	return out
}

// ChunkCount reports how many chunks a file owns. Test helper.
func (s *MemoryStore) ChunkCount(fileID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[fileID])
}
