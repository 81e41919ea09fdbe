// internal/handlers/export.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// ExportParams defines parameters for catalog export operations
type ExportParams struct {
	Columns []string `json:"columns"`
	Makes   []string `json:"makes"`
	Format  string   `json:"format"`
}

// JSONExportResponse represents the JSON export response structure
type JSONExportResponse struct {
	Catalog  []map[string]any `json:"catalog"`
	Metadata ExportMetadata   `json:"metadata"`
}

// ExportMetadata contains metadata about the export
type ExportMetadata struct {
	ExportDate time.Time `json:"export_date"`
	TotalItems int       `json:"total_items"`
	Makes      []string  `json:"makes,omitempty"`
	Columns    []string  `json:"columns"`
}

// ExportHandler handles catalog export operations
type ExportHandler struct {
	catalog ports.CatalogRepository
	cache   ports.CacheRepository
	logger  *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(catalog ports.CatalogRepository, cache ports.CacheRepository, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		catalog: catalog,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "export")),
	}
}

// ExportExcel handles GET /api/v1/export/excel
func (h *ExportHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := h.parseExportParams(r)

	h.logger.InfoContext(ctx, "Starting Excel export",
		slog.Any("params", params))

	data, err := h.getCatalogData(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to retrieve catalog data", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	excelData, err := h.generateExcelFile(data, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to generate Excel file", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	filename := fmt.Sprintf("catalog_export_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(excelData)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if _, err := w.Write(excelData); err != nil {
		h.logger.ErrorContext(ctx, "Failed to write Excel response", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "Excel export completed successfully",
		slog.Int("total_rows", len(data)),
		slog.String("filename", filename))
}

// ExportJSON handles GET /api/v1/export/json
func (h *ExportHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := h.parseExportParams(r)

	h.logger.InfoContext(ctx, "Starting JSON export",
		slog.Any("params", params))

	cacheKey := redis_a.BuildKey(redis_a.PrefixExport, "json", h.getCacheKeyFromParams(params))
	var cachedData []byte
	if err := h.cache.Get(ctx, cacheKey, &cachedData); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Length", strconv.Itoa(len(cachedData)))

		if _, err := w.Write(cachedData); err != nil {
			h.logger.ErrorContext(ctx, "Failed to write cached JSON response", slog.String("error", err.Error()))
			return
		}

		h.logger.InfoContext(ctx, "JSON export served from cache")
		return
	}

	data, err := h.getCatalogData(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to retrieve catalog data", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	jsonData := make([]map[string]any, 0, len(data))
	for i := range data {
		jsonData = append(jsonData, h.variantToJSONMap(&data[i], params.Columns))
	}

	response := JSONExportResponse{
		Catalog: jsonData,
		Metadata: ExportMetadata{
			ExportDate: time.Now(),
			TotalItems: len(jsonData),
			Makes:      params.Makes,
			Columns:    params.Columns,
		},
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to marshal JSON response", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate JSON")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("Content-Length", strconv.Itoa(len(responseData)))

	if _, err := w.Write(responseData); err != nil {
		h.logger.ErrorContext(ctx, "Failed to write JSON response", slog.String("error", err.Error()))
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := h.cache.Set(cacheCtx, cacheKey, responseData); err != nil {
			h.logger.WarnContext(cacheCtx, "Failed to cache JSON response", slog.String("error", err.Error()))
		}
	}()

	h.logger.InfoContext(ctx, "JSON export completed successfully",
		slog.Int("total_rows", len(data)))
}

// parseExportParams parses and validates export parameters from the request
func (h *ExportHandler) parseExportParams(r *http.Request) *ExportParams {
	params := &ExportParams{
		Columns: []string{"all"},
	}

	if cols := r.URL.Query().Get("columns"); cols != "" {
		params.Columns = strings.Split(strings.TrimSpace(cols), ",")
		for i, col := range params.Columns {
			params.Columns[i] = strings.TrimSpace(col)
		}
	}

	if makes := r.URL.Query().Get("brand"); makes != "" {
		for _, m := range strings.Split(makes, ",") {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m != "" {
				params.Makes = append(params.Makes, m)
			}
		}
	}

	params.Format = r.URL.Query().Get("format")
	if params.Format == "" {
		params.Format = "xlsx"
	}

	return params
}

// getCatalogData retrieves the active catalog, narrowed to the requested
// makes when given
func (h *ExportHandler) getCatalogData(ctx context.Context, params *ExportParams) ([]domain.VehicleVariant, error) {
	catalog, err := h.catalog.FindAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if len(params.Makes) == 0 {
		return catalog, nil
	}

	criteria := domain.FilterCriteria{Makes: domain.SelectionOf(params.Makes...)}
	criteria.NormalizeMakes(domain.AvailableMakes(catalog))
	return domain.FilterVehicles(catalog, criteria), nil
}

// generateExcelFile creates an Excel file in memory from the data
func (h *ExportHandler) generateExcelFile(data []domain.VehicleVariant, params *ExportParams) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Catalog")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	headers := h.getExcelHeaders(params.Columns)
	headerRow := sheet.AddRow()
	for _, header := range headers {
		cell := headerRow.AddCell()
		cell.Value = header
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for i := range data {
		dataRow := sheet.AddRow()
		rowData := h.variantToExcelRow(&data[i])

		for _, value := range rowData {
			cell := dataRow.AddCell()
			cell.Value = value
		}
	}

	// Approximate auto-fit. SetColWidth columns are 1-based.
	for i := 1; i <= len(headers); i++ {
		sheet.SetColWidth(i, i, 15)
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("failed to write Excel file to buffer: %w", err)
	}

	return buffer.Bytes(), nil
}

// getExcelHeaders returns the appropriate headers based on requested columns
func (h *ExportHandler) getExcelHeaders(columns []string) []string {
	allHeaders := []string{
		"ID", "Make", "Model", "Variant", "Slug", "Body Type", "Fuel Type",
		"Segment", "Ex-Showroom", "On-Road", "Offer Price", "Displacement (cc)",
		"Seat Height (mm)", "Kerb Weight (kg)", "Active", "Created At", "Updated At",
	}

	if len(columns) == 1 && columns[0] == "all" {
		return allHeaders
	}

	headerMap := map[string]string{
		"id":              "ID",
		"make":            "Make",
		"model":           "Model",
		"variant":         "Variant",
		"slug":            "Slug",
		"body_type":       "Body Type",
		"fuel_type":       "Fuel Type",
		"segment":         "Segment",
		"ex_showroom":     "Ex-Showroom",
		"on_road":         "On-Road",
		"offer_price":     "Offer Price",
		"displacement_cc": "Displacement (cc)",
		"seat_height_mm":  "Seat Height (mm)",
		"kerb_weight_kg":  "Kerb Weight (kg)",
		"is_active":       "Active",
		"created_at":      "Created At",
		"updated_at":      "Updated At",
	}

	var selectedHeaders []string
	for _, col := range columns {
		if header, exists := headerMap[col]; exists {
			selectedHeaders = append(selectedHeaders, header)
		}
	}

	if len(selectedHeaders) == 0 {
		return allHeaders // Fallback to all headers if none match
	}

	return selectedHeaders
}

// variantToExcelRow converts a catalog variant to Excel row values
func (h *ExportHandler) variantToExcelRow(v *domain.VehicleVariant) []string {
	return []string{
		v.ID.String(),
		v.Make,
		v.Model,
		v.Variant,
		v.Slug,
		string(v.BodyType),
		string(v.FuelType),
		v.Segment,
		v.Price.ExShowroom.StringFixed(2),
		v.Price.OnRoad.StringFixed(2),
		v.Price.OfferPrice.StringFixed(2),
		h.safeFloatValue(v.Specs.DisplacementCC),
		h.safeFloatValue(v.Specs.SeatHeightMM),
		h.safeFloatValue(v.Specs.KerbWeightKG),
		h.safeBoolValue(v.IsActive),
		v.CreatedAt.Format("2006-01-02 15:04:05"),
		v.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// variantToJSONMap converts a catalog variant to a JSON-friendly map
func (h *ExportHandler) variantToJSONMap(v *domain.VehicleVariant, columns []string) map[string]any {
	result := map[string]any{
		"id":              v.ID,
		"make":            v.Make,
		"model":           v.Model,
		"variant":         v.Variant,
		"slug":            v.Slug,
		"body_type":       v.BodyType,
		"fuel_type":       v.FuelType,
		"segment":         v.Segment,
		"ex_showroom":     v.Price.ExShowroom,
		"on_road":         v.Price.OnRoad,
		"offer_price":     v.Price.OfferPrice,
		"displacement_cc": v.Specs.DisplacementCC,
		"seat_height_mm":  v.Specs.SeatHeightMM,
		"kerb_weight_kg":  v.Specs.KerbWeightKG,
		"colors":          v.Colors,
		"is_active":       v.IsActive,
		"created_at":      v.CreatedAt,
		"updated_at":      v.UpdatedAt,
	}

	if len(columns) > 0 && !(len(columns) == 1 && columns[0] == "all") {
		filtered := make(map[string]any)
		for _, col := range columns {
			if value, exists := result[col]; exists {
				filtered[col] = value
			}
		}
		return filtered
	}

	return result
}


func (h *ExportHandler) safeFloatValue(value float64) string {
	if value == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", value)
}

func (h *ExportHandler) safeBoolValue(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

func (h *ExportHandler) getCacheKeyFromParams(params *ExportParams) string {
	key := fmt.Sprintf("cols_%s", strings.Join(params.Columns, ","))
	if len(params.Makes) > 0 {
		key += fmt.Sprintf("_makes_%s", strings.Join(params.Makes, ","))
	}
	return key
}

func (h *ExportHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]string{
		"error":   message,
		"status":  "error",
		"message": message,
	}

	json.NewEncoder(w).Encode(response)
}
