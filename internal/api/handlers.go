package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docvault.io/docvault/internal/core"
	"docvault.io/docvault/internal/store"
	"docvault.io/docvault/internal/validation"
)

const maxUploadBytes = 32 << 20

type APIHandler struct {
	typeService   *core.TypeService
	fileService   *core.FileService
	searchService *core.SearchService
}

func NewAPIHandler(ts *core.TypeService, fs *core.FileService, ss *core.SearchService) *APIHandler {
	return &APIHandler{typeService: ts, fileService: fs, searchService: ss}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type RegisterTypeRequest struct {
	FileType string          `json:"file_type"`
	Schema   json.RawMessage `json:"schema"`
}

type RegisterTypeResponse struct {
	FileType string             `json:"file_type"`
	Schema   *validation.Schema `json:"schema"`
}

func (h *APIHandler) RegisterTypeHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.FileType == "" {
		writeError(w, http.StatusBadRequest, "file_type is required")
		return
	}
	if len(req.Schema) == 0 {
		writeError(w, http.StatusBadRequest, "schema is required")
		return
	}

	ft, err := h.typeService.Register(r.Context(), req.FileType, req.Schema)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTypeExists):
			// Conflict responses carry the stored schema so the caller can
			// see what the type already looks like.
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":  fmt.Sprintf("file type '%s' is already registered", req.FileType),
				"schema": ft.Schema,
			})
		case isSchemaDeclarationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("Error registering file type %s: %v", req.FileType, err)
			writeError(w, http.StatusInternalServerError, "Failed to register file type")
		}
		return
	}

	writeJSON(w, http.StatusCreated, RegisterTypeResponse{FileType: ft.Name, Schema: ft.Schema})
}

func isSchemaDeclarationError(err error) bool {
	var schemaErr *validation.SchemaError
	return errors.Is(err, validation.ErrEmptySchema) ||
		errors.Is(err, validation.ErrInvalidSchemaDocument) ||
		errors.As(err, &schemaErr)
}

type UploadResponse struct {
	FileID        string         `json:"file_id"`
	FileName      string         `json:"file_name"`
	FileType      string         `json:"file_type"`
	Metadata      map[string]any `json:"metadata"`
	FolderPath    string         `json:"folder_path"`
	UploadedAt    string         `json:"uploaded_at"`
	ChunksIndexed int            `json:"chunks_indexed"`
}

func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	fileType := chi.URLParam(r, "fileType")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A 'file' part is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file: "+err.Error())
		return
	}

	metadataValue := r.FormValue("metadata")
	if metadataValue == "" {
		metadataValue = "{}"
	}
	folderPath := r.FormValue("folder_path")

	result, err := h.fileService.Upload(r.Context(), fileType, header.Filename, data, []byte(metadataValue), folderPath)
	if err != nil {
		var fieldErr *core.FieldValidationError
		switch {
		case errors.Is(err, core.ErrTypeNotRegistered):
			writeError(w, http.StatusNotFound, fmt.Sprintf("file type '%s' is not registered", fileType))
		case errors.Is(err, core.ErrInvalidMetadataJSON):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &fieldErr):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fieldErr.Fields})
		case errors.Is(err, core.ErrEmbeddingUnavailable):
			log.Printf("Indexing failed for upload to type %s: %v", fileType, err)
			body := map[string]any{"error": err.Error()}
			if result != nil && result.File != nil {
				// The record survived without an index; tell the caller
				// where it is.
				body["file_id"] = result.File.ID
			}
			writeJSON(w, http.StatusBadGateway, body)
		default:
			log.Printf("Error uploading file to type %s: %v", fileType, err)
			writeError(w, http.StatusInternalServerError, "Failed to upload file")
		}
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		FileID:        result.File.ID,
		FileName:      result.File.Name,
		FileType:      fileType,
		Metadata:      result.File.Metadata,
		FolderPath:    result.File.FolderPath,
		UploadedAt:    result.File.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		ChunksIndexed: result.ChunksIndexed,
	})
}

func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}
	typeFilter := r.URL.Query().Get("file_type")

	topK := 0
	if v := r.URL.Query().Get("top_k"); v != "" {
		topK, _ = strconv.Atoi(v)
	}

	results, err := h.searchService.Search(r.Context(), query, typeFilter, topK)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTypeNotRegistered):
			writeError(w, http.StatusNotFound, fmt.Sprintf("file type '%s' is not registered", typeFilter))
		case errors.Is(err, core.ErrEmbeddingUnavailable):
			log.Printf("Search embedding failed: %v", err)
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			log.Printf("Error searching for %q: %v", query, err)
			writeError(w, http.StatusInternalServerError, "Search failed")
		}
		return
	}

	if results == nil {
		results = []store.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *APIHandler) GetFileHandler(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	rec, err := h.fileService.Get(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, store.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		log.Printf("Error getting file %s: %v", fileID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get file")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *APIHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	data, name, err := h.fileService.Content(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, store.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		log.Printf("Error downloading file %s: %v", fileID, err)
		writeError(w, http.StatusInternalServerError, "Failed to download file")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

func (h *APIHandler) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	if err := h.fileService.Delete(r.Context(), fileID); err != nil {
		if errors.Is(err, store.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		log.Printf("Error deleting file %s: %v", fileID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
