package core

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"docvault.io/docvault/internal/chunker"
	"docvault.io/docvault/internal/crypto"
	"docvault.io/docvault/internal/store"
	"docvault.io/docvault/internal/validation"
)

const testDim = 4

// stubEmbedder produces small deterministic vectors and records call counts.
type stubEmbedder struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	fixed   []float32 // returned verbatim when set
	baddims bool      // return a wrong-dimension vector
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.fail {
		return nil, fmt.Errorf("stub embedder down")
	}
	if e.baddims {
		return []float32{1, 2}, nil
	}
	if e.fixed != nil {
		return e.fixed, nil
	}
	// Cheap deterministic features so distinct texts get distinct vectors.
	vec := make([]float32, testDim)
	for i, r := range text {
		vec[i%testDim] += float32(r) / 1000
	}
	return vec, nil
}

func (e *stubEmbedder) Dimension() int { return testDim }

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newTestFileService(t *testing.T, st Store, embedder Embedder) *FileService {
	t.Helper()
	encryptor, err := crypto.NewAESEncryptor("")
	require.NoError(t, err)
	return NewFileService(st, embedder, encryptor, chunker.New(80, 10), 2)
}

func registerTestType(t *testing.T, st Store, name, schemaJSON string) *store.FileType {
	t.Helper()
	schema, err := validation.NormalizeSchema(validation.DefaultRegistry, []byte(schemaJSON))
	require.NoError(t, err)
	ft, err := st.CreateFileType(context.Background(), name, schema)
	require.NoError(t, err)
	return ft
}
