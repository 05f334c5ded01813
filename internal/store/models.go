package store

import (
	"errors"
	"time"

	"docvault.io/docvault/internal/validation"
)

var (
	// ErrTypeExists signals that a file type name is already registered.
	// CreateFileType returns it together with the existing record so the
	// caller can report the stored schema.
	ErrTypeExists = errors.New("file type already registered")

	ErrFileNotFound = errors.New("file not found")
)

// FileType is a registered document type and its write-once metadata schema.
type FileType struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Schema    *validation.Schema `json:"schema"`
	CreatedAt time.Time          `json:"created_at"`
}

// FileRecord is one uploaded file. Data holds the encrypted raw bytes;
// Metadata is the validated metadata produced at upload time. Records are
// immutable after creation.
type FileRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	TypeID     string         `json:"-"`
	TypeName   string         `json:"type"`
	Data       []byte         `json:"-"`
	Metadata   map[string]any `json:"metadata"`
	FolderPath string         `json:"folder_path"`
	UploadedAt time.Time      `json:"uploaded_at"`
}

// Chunk is one embedded text segment of a file. Index is the position in the
// original chunk sequence, contiguous from 0.
type Chunk struct {
	FileID    string    `json:"file_id"`
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// SearchResult is one ranked nearest-neighbor match.
type SearchResult struct {
	FileID     string  `json:"file_id"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	Similarity float32 `json:"similarity"`
}
