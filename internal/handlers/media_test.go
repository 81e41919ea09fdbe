// internal/handlers/media_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/adapters/storage"
	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/handlers"
	"github.com/bookmybike/marketplace-be/test/helpers"
	"github.com/bookmybike/marketplace-be/test/mocks"
)

func multipartImage(t *testing.T, filename, hexCode string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)

	if hexCode != "" {
		require.NoError(t, writer.WriteField("hex_code", hexCode))
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestMediaHandler_UploadImage(t *testing.T) {
	logger := helpers.TestLogger()

	newRequest := func(variantID string, body *bytes.Buffer, contentType string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/"+variantID+"/images", body)
		req.Header.Set("Content-Type", contentType)
		req.SetPathValue("id", variantID)
		return req
	}

	t.Run("stores_image_and_links_color_option", func(t *testing.T) {
		variant := helpers.CreateTestVariant()
		catalog := new(mocks.MockCatalogService)
		catalog.On("GetByID", mock.Anything, variant.ID).Return(variant, nil)
		catalog.On("UpdateVariant", mock.Anything, variant.ID, mock.MatchedBy(func(v *domain.VehicleVariant) bool {
			return v.Colors[0].ImageURL != ""
		})).Return(nil)

		store := storage.NewLocalStorage(t.TempDir(), logger)
		handler := handlers.NewMediaHandler(store, catalog, logger, 0)

		body, contentType := multipartImage(t, "pearl-black.png", "#1B1B1B")
		rec := httptest.NewRecorder()
		handler.UploadImage(rec, newRequest(variant.ID.String(), body, contentType))

		require.Equal(t, http.StatusCreated, rec.Code)

		var response map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Contains(t, response["key"], "variants/"+variant.ID.String()+"/images/")
		assert.NotEmpty(t, response["url"])

		exists, err := store.Exists(context.Background(), response["key"])
		require.NoError(t, err)
		assert.True(t, exists)

		catalog.AssertExpectations(t)
	})

	t.Run("upload_without_hex_code_skips_variant_update", func(t *testing.T) {
		variant := helpers.CreateTestVariant()
		catalog := new(mocks.MockCatalogService)
		catalog.On("GetByID", mock.Anything, variant.ID).Return(variant, nil)

		store := storage.NewLocalStorage(t.TempDir(), logger)
		handler := handlers.NewMediaHandler(store, catalog, logger, 0)

		body, contentType := multipartImage(t, "studio-shot.jpg", "")
		rec := httptest.NewRecorder()
		handler.UploadImage(rec, newRequest(variant.ID.String(), body, contentType))

		require.Equal(t, http.StatusCreated, rec.Code)
		catalog.AssertNotCalled(t, "UpdateVariant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown_hex_code_rejected", func(t *testing.T) {
		variant := helpers.CreateTestVariant()
		catalog := new(mocks.MockCatalogService)
		catalog.On("GetByID", mock.Anything, variant.ID).Return(variant, nil)

		store := storage.NewLocalStorage(t.TempDir(), logger)
		handler := handlers.NewMediaHandler(store, catalog, logger, 0)

		body, contentType := multipartImage(t, "swatch.png", "#FFFFFF")
		rec := httptest.NewRecorder()
		handler.UploadImage(rec, newRequest(variant.ID.String(), body, contentType))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid_variant_id", func(t *testing.T) {
		catalog := new(mocks.MockCatalogService)
		store := storage.NewLocalStorage(t.TempDir(), logger)
		handler := handlers.NewMediaHandler(store, catalog, logger, 0)

		body, contentType := multipartImage(t, "swatch.png", "")
		rec := httptest.NewRecorder()
		handler.UploadImage(rec, newRequest("not-a-uuid", body, contentType))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects_non_image_extension", func(t *testing.T) {
		variant := helpers.CreateTestVariant()
		catalog := new(mocks.MockCatalogService)

		store := storage.NewLocalStorage(t.TempDir(), logger)
		handler := handlers.NewMediaHandler(store, catalog, logger, 0)

		body, contentType := multipartImage(t, "feed.csv", "")
		rec := httptest.NewRecorder()
		handler.UploadImage(rec, newRequest(variant.ID.String(), body, contentType))

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}
