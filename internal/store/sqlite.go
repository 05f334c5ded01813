package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"docvault.io/docvault/internal/utils"
	"docvault.io/docvault/internal/validation"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err = s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS file_types (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT UNIQUE NOT NULL,
        schema_json TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS files (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        type_id TEXT NOT NULL,
        data BLOB NOT NULL,
        metadata_json TEXT,
        folder_path TEXT NOT NULL DEFAULT '/',
        uploaded_at DATETIME NOT NULL,
        FOREIGN KEY (type_id) REFERENCES file_types (id)
    );

    CREATE TABLE IF NOT EXISTS file_chunks (
        file_id TEXT NOT NULL,
        chunk_index INTEGER NOT NULL,
        chunk_text TEXT NOT NULL,
        embedding_json TEXT NOT NULL, -- JSON string of []float32
        PRIMARY KEY (file_id, chunk_index),
        FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// CreateFileType registers a new file type. Type names are write-once: a
// concurrent or repeated registration of the same name hits the UNIQUE
// constraint, and the existing record is returned with ErrTypeExists.
func (s *SQLiteStore) CreateFileType(ctx context.Context, name string, schema *validation.Schema) (*FileType, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	ft := &FileType{
		ID:        uuid.NewString(),
		Name:      name,
		Schema:    schema,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO file_types (id, name, schema_json, created_at) VALUES (?, ?, ?, ?)",
		ft.ID, ft.Name, string(schemaJSON), ft.CreatedAt)
	if err != nil {
		if isUniqueConstraint(err) {
			existing, getErr := s.GetFileType(ctx, name)
			if getErr != nil {
				return nil, getErr
			}
			if existing != nil {
				return existing, ErrTypeExists
			}
		}
		return nil, fmt.Errorf("failed to insert file type: %w", err)
	}
	return ft, nil
}

// GetFileType returns the registered type, or (nil, nil) when unknown.
func (s *SQLiteStore) GetFileType(ctx context.Context, name string) (*FileType, error) {
	var ft FileType
	var schemaJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, schema_json, created_at FROM file_types WHERE name = ?", name).
		Scan(&ft.ID, &ft.Name, &schemaJSON, &ft.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query file type: %w", err)
	}
	if err := json.Unmarshal([]byte(schemaJSON), &ft.Schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema for type %s: %w", name, err)
	}
	if err := ft.Schema.RetypeDefaults(validation.DefaultRegistry); err != nil {
		return nil, fmt.Errorf("failed to restore schema defaults for type %s: %w", name, err)
	}
	return &ft, nil
}

// CreateFile persists a new file record, assigning its ID and timestamp.
func (s *SQLiteStore) CreateFile(ctx context.Context, rec *FileRecord) error {
	rec.ID = uuid.NewString()
	rec.UploadedAt = time.Now().UTC()

	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO files (id, name, type_id, data, metadata_json, folder_path, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Name, rec.TypeID, rec.Data, string(metadataJSON), rec.FolderPath, rec.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

// GetFile returns a file record with its decoded metadata and owning type
// name, or (nil, nil) when the id is unknown.
func (s *SQLiteStore) GetFile(ctx context.Context, id string) (*FileRecord, error) {
	var rec FileRecord
	var metadataJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `
        SELECT f.id, f.name, f.type_id, t.name, f.data, f.metadata_json, f.folder_path, f.uploaded_at
        FROM files f
        JOIN file_types t ON t.id = f.type_id
        WHERE f.id = ?`, id).
		Scan(&rec.ID, &rec.Name, &rec.TypeID, &rec.TypeName, &rec.Data, &metadataJSON, &rec.FolderPath, &rec.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for file %s: %w", id, err)
		}
	}
	return &rec, nil
}

// DeleteFile removes a file and all of its chunks in one transaction.
func (s *SQLiteStore) DeleteFile(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM file_chunks WHERE file_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrFileNotFound
	}
	return tx.Commit()
}

// CreateChunks persists a file's chunk set in a single transaction. Either
// every chunk lands or none do, so a file never carries a gap-ridden or
// partial chunk sequence.
func (s *SQLiteStore) CreateChunks(ctx context.Context, fileID string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO file_chunks (file_id, chunk_index, chunk_text, embedding_json) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for chunk %d: %w", chunk.Index, err)
		}
		if _, err := stmt.ExecContext(ctx, fileID, chunk.Index, chunk.Text, string(embeddingJSON)); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.Index, err)
		}
	}
	return tx.Commit()
}

// NearestNeighbors ranks stored chunks by cosine similarity to the query
// vector. A non-empty typeFilter restricts the candidate set before the
// topK cut, never after it. Stored vectors whose dimension does not match
// the query are skipped rather than compared.
func (s *SQLiteStore) NearestNeighbors(ctx context.Context, vector []float32, topK int, typeFilter string) ([]SearchResult, error) {
	query := `
        SELECT c.file_id, c.chunk_index, c.chunk_text, c.embedding_json
        FROM file_chunks c`
	var args []any
	if typeFilter != "" {
		query += `
        JOIN files f ON f.id = c.file_id
        JOIN file_types t ON t.id = f.type_id
        WHERE t.name = ?`
		args = append(args, typeFilter)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var embeddingJSON string
		if err := rows.Scan(&r.FileID, &r.ChunkIndex, &r.ChunkText, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
			log.Printf("Warning: unreadable embedding for file %s chunk %d, skipping: %v", r.FileID, r.ChunkIndex, err)
			continue
		}
		if len(embedding) != len(vector) {
			log.Printf("Warning: dimension mismatch for file %s chunk %d (%d vs %d), skipping",
				r.FileID, r.ChunkIndex, len(embedding), len(vector))
			continue
		}
		similarity, err := utils.CosineSimilarity(vector, embedding)
		if err != nil {
			continue
		}
		r.Similarity = similarity
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunk rows: %w", err)
	}

	rankResults(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// rankResults orders by similarity descending with a deterministic tie-break.
func rankResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].FileID != results[j].FileID {
			return results[i].FileID < results[j].FileID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})
}

func isUniqueConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
