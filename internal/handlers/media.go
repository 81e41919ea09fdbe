// internal/handlers/media.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookmybike/marketplace-be/internal/adapters/storage"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// MediaHandler uploads variant color images to object storage and links
// them to the catalog entry.
type MediaHandler struct {
	storage storage.StorageClient
	catalog ports.CatalogService
	logger  *slog.Logger
	maxSize int64
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(store storage.StorageClient, catalog ports.CatalogService, logger *slog.Logger, maxSize int64) *MediaHandler {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &MediaHandler{
		storage: store,
		catalog: catalog,
		logger:  logger.With(slog.String("handler", "media")),
		maxSize: maxSize,
	}
}

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// UploadImage handles POST /api/v1/catalog/{id}/images. The multipart
// form carries the image file plus the hex code of the color swatch it
// belongs to. The stored object key is written onto the matching color
// option so the storefront can render it.
func (h *MediaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Missing 'image' file field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		h.respondError(w, http.StatusUnsupportedMediaType, "Only jpg, png and webp images are accepted")
		return
	}

	variant, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Catalog variant not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to load variant for image upload",
			slog.String("id", id.String()),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to load variant")
		return
	}

	hexCode := strings.TrimSpace(r.FormValue("hex_code"))

	key := storage.VariantImageKey(id.String(), header.Filename)
	location, err := h.storage.Upload(ctx, key, file, contentType)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to upload variant image",
			slog.String("key", key),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to store image")
		return
	}

	if hexCode != "" {
		matched := false
		for i := range variant.Colors {
			if strings.EqualFold(variant.Colors[i].HexCode, hexCode) {
				variant.Colors[i].ImageURL = key
				matched = true
				break
			}
		}
		if !matched {
			h.respondError(w, http.StatusBadRequest, "No color option with that hex code on this variant")
			return
		}

		if err := h.catalog.UpdateVariant(ctx, id, variant); err != nil {
			h.logger.ErrorContext(ctx, "failed to link image to color option",
				slog.String("id", id.String()),
				slog.String("error", err.Error()))
			h.respondError(w, http.StatusInternalServerError, "Image stored but variant update failed")
			return
		}
	}

	url, err := h.storage.GetPresignedURL(ctx, key, 15*time.Minute)
	if err != nil {
		h.logger.WarnContext(ctx, "presigned URL unavailable for uploaded image",
			slog.String("key", key),
			slog.String("error", err.Error()))
		url = location
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{
		"key": key,
		"url": url,
	})
}

func (h *MediaHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *MediaHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
