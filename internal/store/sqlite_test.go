package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault.io/docvault/internal/validation"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSchema(t *testing.T) *validation.Schema {
	t.Helper()
	schema, err := validation.NormalizeSchema(validation.DefaultRegistry,
		[]byte(`{"title": {"type": "string", "required": true}, "tags": "list"}`))
	require.NoError(t, err)
	return schema
}

func createTestFile(t *testing.T, s *SQLiteStore, typeID string) *FileRecord {
	t.Helper()
	rec := &FileRecord{
		Name:       "doc.txt",
		TypeID:     typeID,
		Data:       []byte("encrypted bytes"),
		Metadata:   map[string]any{"title": "hello"},
		FolderPath: "/",
	}
	require.NoError(t, s.CreateFile(context.Background(), rec))
	return rec
}

func TestSQLite_CreateFileType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ft, err := s.CreateFileType(ctx, "invoice", testSchema(t))
	require.NoError(t, err)
	assert.NotEmpty(t, ft.ID)
	assert.Equal(t, "invoice", ft.Name)

	loaded, err := s.GetFileType(ctx, "invoice")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, ft.ID, loaded.ID)

	spec, ok := loaded.Schema.Fields.Get("title")
	require.True(t, ok)
	assert.Equal(t, "string", spec.Type)
	assert.True(t, spec.Required)
}

func TestSQLite_CreateFileType_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateFileType(ctx, "invoice", testSchema(t))
	require.NoError(t, err)

	other, err := validation.NormalizeSchema(validation.DefaultRegistry, []byte(`{"x": "integer"}`))
	require.NoError(t, err)

	second, err := s.CreateFileType(ctx, "invoice", other)
	assert.ErrorIs(t, err, ErrTypeExists)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID, "existing registration wins")

	_, hasTitle := second.Schema.Fields.Get("title")
	assert.True(t, hasTitle, "stored schema unchanged by the losing registration")
}

func TestSQLite_SchemaDefaultsKeepTheirTypesAcrossReload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	schema, err := validation.NormalizeSchema(validation.DefaultRegistry, []byte(`{
		"due":      {"type": "datetime", "default": "2024-01-02T15:04:05Z"},
		"priority": {"type": "integer", "default": 3},
		"ratio":    {"type": "float", "default": 0.5}
	}`))
	require.NoError(t, err)

	_, err = s.CreateFileType(ctx, "task", schema)
	require.NoError(t, err)

	loaded, err := s.GetFileType(ctx, "task")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	due, ok := loaded.Schema.Fields.Get("due")
	require.True(t, ok)
	dueTime, ok := due.Default.(time.Time)
	require.True(t, ok, "datetime default reloads as time.Time, not a string")
	assert.True(t, dueTime.Equal(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)))

	priority, ok := loaded.Schema.Fields.Get("priority")
	require.True(t, ok)
	assert.Equal(t, int64(3), priority.Default, "integer default reloads as int64, not float64")

	ratio, ok := loaded.Schema.Fields.Get("ratio")
	require.True(t, ok)
	assert.Equal(t, 0.5, ratio.Default)
}

func TestSQLite_GetFileType_Unknown(t *testing.T) {
	s := newTestStore(t)
	ft, err := s.GetFileType(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, ft)
}

func TestSQLite_CreateAndGetFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ft, err := s.CreateFileType(ctx, "invoice", testSchema(t))
	require.NoError(t, err)
	rec := createTestFile(t, s, ft.ID)

	loaded, err := s.GetFile(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "doc.txt", loaded.Name)
	assert.Equal(t, "invoice", loaded.TypeName)
	assert.Equal(t, []byte("encrypted bytes"), loaded.Data)
	assert.Equal(t, "hello", loaded.Metadata["title"])
	assert.False(t, loaded.UploadedAt.IsZero())
}

func TestSQLite_GetFile_Unknown(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.GetFile(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLite_CreateChunksAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ft, err := s.CreateFileType(ctx, "invoice", testSchema(t))
	require.NoError(t, err)
	rec := createTestFile(t, s, ft.ID)

	chunks := []Chunk{
		{FileID: rec.ID, Index: 0, Text: "close", Embedding: []float32{1, 0, 0}},
		{FileID: rec.ID, Index: 1, Text: "mid", Embedding: []float32{1, 1, 0}},
		{FileID: rec.ID, Index: 2, Text: "far", Embedding: []float32{0, 0, 1}},
	}
	require.NoError(t, s.CreateChunks(ctx, rec.ID, chunks))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "close", results[0].ChunkText)
	assert.Equal(t, "mid", results[1].ChunkText)
	assert.Equal(t, "far", results[2].ChunkText)
}

func TestSQLite_NearestNeighbors_TopK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ft, err := s.CreateFileType(ctx, "invoice", testSchema(t))
	require.NoError(t, err)
	rec := createTestFile(t, s, ft.ID)

	var chunks []Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, Chunk{
			FileID: rec.ID, Index: i, Text: "chunk",
			Embedding: []float32{1, float32(i) / 10, 0},
		})
	}
	require.NoError(t, s.CreateChunks(ctx, rec.ID, chunks))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0, 0}, 4, "")
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestSQLite_NearestNeighbors_TypeFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	invoiceType, err := s.CreateFileType(ctx, "invoice", testSchema(t))
	require.NoError(t, err)
	memoSchema, err := validation.NormalizeSchema(validation.DefaultRegistry, []byte(`{"subject": "string"}`))
	require.NoError(t, err)
	memoType, err := s.CreateFileType(ctx, "memo", memoSchema)
	require.NoError(t, err)

	invoiceFile := createTestFile(t, s, invoiceType.ID)
	memoFile := createTestFile(t, s, memoType.ID)

	require.NoError(t, s.CreateChunks(ctx, invoiceFile.ID, []Chunk{
		{FileID: invoiceFile.ID, Index: 0, Text: "invoice text", Embedding: []float32{1, 0, 0}},
	}))
	require.NoError(t, s.CreateChunks(ctx, memoFile.ID, []Chunk{
		{FileID: memoFile.ID, Index: 0, Text: "memo text", Embedding: []float32{1, 0, 0}},
	}))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0, 0}, 5, "invoice")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, invoiceFile.ID, results[0].FileID)

	// The filter restricts candidates, so an equally similar chunk of the
	// other type never displaces an in-type match.
	results, err = s.NearestNeighbors(ctx, []float32{1, 0, 0}, 1, "memo")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, memoFile.ID, results[0].FileID)
}

func TestSQLite_NearestNeighbors_SkipsMismatchedDimensions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ft, err := s.CreateFileType(ctx, "invoice", testSchema(t))
	require.NoError(t, err)
	rec := createTestFile(t, s, ft.ID)

	require.NoError(t, s.CreateChunks(ctx, rec.ID, []Chunk{
		{FileID: rec.ID, Index: 0, Text: "good", Embedding: []float32{1, 0, 0}},
		{FileID: rec.ID, Index: 1, Text: "bad", Embedding: []float32{1, 0}},
	}))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].ChunkText)
}

func TestSQLite_DeleteFile_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ft, err := s.CreateFileType(ctx, "invoice", testSchema(t))
	require.NoError(t, err)
	rec := createTestFile(t, s, ft.ID)

	require.NoError(t, s.CreateChunks(ctx, rec.ID, []Chunk{
		{FileID: rec.ID, Index: 0, Text: "text", Embedding: []float32{1, 0, 0}},
	}))

	require.NoError(t, s.DeleteFile(ctx, rec.ID))

	loaded, err := s.GetFile(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	results, err := s.NearestNeighbors(ctx, []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, results, "chunks are removed with their owning file")
}

func TestSQLite_DeleteFile_Unknown(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteFile(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSQLite_CreateChunks_Empty(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.CreateChunks(context.Background(), "any", nil))
}
