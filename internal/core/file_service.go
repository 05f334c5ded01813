package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"docvault.io/docvault/internal/chunker"
	"docvault.io/docvault/internal/crypto"
	"docvault.io/docvault/internal/extract"
	"docvault.io/docvault/internal/store"
	"docvault.io/docvault/internal/validation"
)

// FileService orchestrates the upload flow: metadata validation, encrypted
// persistence of the file record, then chunking and embedding of its text.
type FileService struct {
	store            Store
	embedder         Embedder
	encryptor        crypto.Encryptor
	chunker          *chunker.Chunker
	registry         *validation.Registry
	embedConcurrency int
}

func NewFileService(st Store, embedder Embedder, encryptor crypto.Encryptor, ch *chunker.Chunker, embedConcurrency int) *FileService {
	if embedConcurrency <= 0 {
		embedConcurrency = 1
	}
	return &FileService{
		store:            st,
		embedder:         embedder,
		encryptor:        encryptor,
		chunker:          ch,
		registry:         validation.DefaultRegistry,
		embedConcurrency: embedConcurrency,
	}
}

// UploadResult summarizes a stored file. ChunksIndexed is zero for files
// with no extractable text; such files are queryable by metadata but not by
// content, which is a valid state.
type UploadResult struct {
	File          *store.FileRecord
	ChunksIndexed int
}

// Upload validates metadata against the type's schema, persists the
// encrypted file, and indexes its text. Validation failures come back as a
// *FieldValidationError holding the complete per-field map. A file record
// that persists but fails indexing is reported via the returned error while
// the record itself survives with zero chunks.
func (s *FileService) Upload(ctx context.Context, typeName, fileName string, data []byte, metadataJSON []byte, folderPath string) (*UploadResult, error) {
	ft, err := s.store.GetFileType(ctx, typeName)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, typeName)
	}

	var rawMetadata map[string]any
	if err := json.Unmarshal(metadataJSON, &rawMetadata); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadataJSON, err)
	}

	validated, fieldErrs := validation.ValidateMetadata(s.registry, ft.Schema, rawMetadata)
	if len(fieldErrs) > 0 {
		return nil, &FieldValidationError{Fields: fieldErrs}
	}

	encrypted, err := s.encryptor.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt file: %w", err)
	}

	if folderPath == "" {
		folderPath = "/"
	}
	rec := &store.FileRecord{
		Name:       fileName,
		TypeID:     ft.ID,
		TypeName:   ft.Name,
		Data:       encrypted,
		Metadata:   validated,
		FolderPath: folderPath,
	}
	if err := s.store.CreateFile(ctx, rec); err != nil {
		return nil, err
	}

	indexed, err := s.indexFile(ctx, rec.ID, fileName, data, validated)
	if err != nil {
		// The record exists; only the content index is missing. The partial
		// result comes back with the error so callers can report the id of
		// the surviving record.
		return &UploadResult{File: rec}, fmt.Errorf("file %s stored but indexing failed: %w", rec.ID, err)
	}
	return &UploadResult{File: rec, ChunksIndexed: indexed}, nil
}

// indexFile turns a file's text into embedded chunks and persists them as
// one batch. Files without extractable text are skipped by policy, not
// error. The serialized metadata is appended to the text so metadata content
// is searchable too.
func (s *FileService) indexFile(ctx context.Context, fileID, fileName string, data []byte, metadata map[string]any) (int, error) {
	text := extract.Text(fileName, data)
	if text == "" {
		log.Printf("No extractable text in %s, skipping indexing", fileName)
		return 0, nil
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize metadata for indexing: %w", err)
	}

	segments := s.chunker.Split(text + " " + string(metadataJSON))
	if len(segments) == 0 {
		return 0, nil
	}

	chunks, err := s.embedSegments(ctx, fileID, segments)
	if err != nil {
		return 0, err
	}
	if err := s.store.CreateChunks(ctx, fileID, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// embedSegments embeds every segment with bounded concurrency. Chunk indices
// follow the original segment order, not completion order, and any single
// failure aborts the whole set so no partial batch reaches the store.
func (s *FileService) embedSegments(ctx context.Context, fileID string, segments []string) ([]store.Chunk, error) {
	chunks := make([]store.Chunk, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedConcurrency)
	for i, segment := range segments {
		g.Go(func() error {
			vector, err := s.embedder.Embed(gctx, segment)
			if err != nil {
				return fmt.Errorf("%w: chunk %d: %v", ErrEmbeddingUnavailable, i, err)
			}
			if len(vector) != s.embedder.Dimension() {
				return fmt.Errorf("embedding dimension mismatch for chunk %d: expected %d, got %d",
					i, s.embedder.Dimension(), len(vector))
			}
			chunks[i] = store.Chunk{FileID: fileID, Index: i, Text: segment, Embedding: vector}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// Get returns a stored file record or ErrFileNotFound.
func (s *FileService) Get(ctx context.Context, id string) (*store.FileRecord, error) {
	rec, err := s.store.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, store.ErrFileNotFound
	}
	return rec, nil
}

// Content returns the decrypted original bytes of a stored file along with
// its name.
func (s *FileService) Content(ctx context.Context, id string) ([]byte, string, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	plain, err := s.encryptor.Decrypt(rec.Data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt file %s: %w", id, err)
	}
	return plain, rec.Name, nil
}

// Delete removes a file and, through the store, all of its chunks.
func (s *FileService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteFile(ctx, id)
}
