package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// File type registration
		r.Post("/file-types", apiHandler.RegisterTypeHandler)

		// Uploads are scoped to a registered type
		r.Post("/file-types/{fileType}/files", apiHandler.UploadHandler)

		// Stored files
		r.Get("/files/{fileID}", apiHandler.GetFileHandler)
		r.Get("/files/{fileID}/content", apiHandler.DownloadHandler)
		r.Delete("/files/{fileID}", apiHandler.DeleteFileHandler)

		// Semantic search
		r.Get("/search", apiHandler.SearchHandler)
	})

	return r
}
