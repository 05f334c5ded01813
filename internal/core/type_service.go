package core

import (
	"context"
	"fmt"
	"strings"

	"docvault.io/docvault/internal/store"
	"docvault.io/docvault/internal/validation"
)

// TypeService handles registration and lookup of file types and their
// metadata schemas. Schemas are write-once: re-registering a name neither
// merges nor overwrites.
type TypeService struct {
	store    Store
	registry *validation.Registry
}

func NewTypeService(st Store) *TypeService {
	return &TypeService{store: st, registry: validation.DefaultRegistry}
}

// Register normalizes the caller-supplied schema and persists it under the
// given type name. On a name collision the existing type is returned along
// with store.ErrTypeExists so the caller can report the stored schema.
func (s *TypeService) Register(ctx context.Context, name string, schemaJSON []byte) (*store.FileType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("file type name cannot be empty")
	}

	schema, err := validation.NormalizeSchema(s.registry, schemaJSON)
	if err != nil {
		return nil, err
	}
	return s.store.CreateFileType(ctx, name, schema)
}

// Get returns the registered type or ErrTypeNotRegistered.
func (s *TypeService) Get(ctx context.Context, name string) (*store.FileType, error) {
	ft, err := s.store.GetFileType(ctx, name)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, name)
	}
	return ft, nil
}
