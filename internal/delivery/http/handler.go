package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/usecase"
)

const (
	serviceName   = "caskledger-catalog"
	version       = "1.0.0"
	maxBatchUnits = 10000
)

// CatalogService is the resolution engine as seen by the HTTP layer
type CatalogService interface {
	Resolve(ctx context.Context, d *domain.Descriptor) (domain.ResolutionResult, error)
	Suggest(ctx context.Context, d *domain.Descriptor) ([]domain.Candidate, error)
	ImportRows(ctx context.Context, rows []domain.ImportRow, mapping domain.ColumnMapping) (*domain.BatchReport, error)
	SyncRecords(ctx context.Context, records []domain.ExternalRecord) (*domain.BatchReport, error)
	SyncFeed(ctx context.Context, feed domain.FeedSource, pageSize, maxRecords int) (*domain.BatchReport, error)
}

// EntryReader reads canonical entries
type EntryReader interface {
	Get(ctx context.Context, id string) (*domain.CanonicalEntry, error)
}

// HealthChecker reports backing store health
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service      CatalogService
	entries      EntryReader
	feed         domain.FeedSource
	health       HealthChecker
	feedPageSize int
	logger       *slog.Logger
}

// HandlerOptions holds the optional collaborators of a Handler
type HandlerOptions struct {
	Feed         domain.FeedSource // nil disables POST /sync/feed
	Health       HealthChecker
	FeedPageSize int
	Logger       *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service CatalogService, entries EntryReader, opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:      service,
		entries:      entries,
		feed:         opts.Feed,
		health:       opts.Health,
		feedPageSize: opts.FeedPageSize,
		logger:       logger,
	}
}

// DescriptorRequest is a single product description submitted for resolution.
// Numeric fields accept numbers or text such as "93 proof" or "46.5%".
type DescriptorRequest struct {
	Name       string      `json:"name"`
	Brand      string      `json:"brand"`
	Distillery string      `json:"distillery"`
	Category   string      `json:"category"`
	Variant    string      `json:"variant"`
	Vintage    string      `json:"vintage"`
	ExternalID string      `json:"externalId"` // iWine id, or "feed:<id>"
	Proof      interface{} `json:"proof"`
	ABV        interface{} `json:"abv"`
	Size       string      `json:"size"`
	Country    string      `json:"country"`
	Region     string      `json:"region"`
	UPCs       []string    `json:"upcs"`
}

// ImportRequest is a batch of spreadsheet rows plus the column mapping
type ImportRequest struct {
	Mapping domain.ColumnMapping `json:"mapping" binding:"required"`
	Rows    []domain.ImportRow   `json:"rows" binding:"required"`
}

// SyncRequest is a batch of already parsed feed records
type SyncRequest struct {
	Records []domain.ExternalRecord `json:"records" binding:"required"`
}

// FeedSyncRequest limits a pull from the configured feed
type FeedSyncRequest struct {
	MaxRecords int `json:"maxRecords"`
}

// SuggestionsResponse lists review candidates best first
type SuggestionsResponse struct {
	Candidates []domain.Candidate `json:"candidates"`
}

// ErrorResponse is the error body of every endpoint
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": serviceName,
		"version": version,
	})
}

// Resolve links a descriptor to a canonical entry, creating one when nothing matches
func (h *Handler) Resolve(c *gin.Context) {
	d, ok := h.bindDescriptor(c)
	if !ok {
		return
	}

	result, err := h.service.Resolve(c.Request.Context(), d)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Suggestions returns scored candidates for a person to confirm. Nothing is written.
func (h *Handler) Suggestions(c *gin.Context) {
	d, ok := h.bindDescriptor(c)
	if !ok {
		return
	}

	candidates, err := h.service.Suggest(c.Request.Context(), d)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	c.JSON(http.StatusOK, SuggestionsResponse{Candidates: candidates})
}

// Import resolves spreadsheet rows
func (h *Handler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}
	if len(req.Rows) > maxBatchUnits {
		h.writeError(c, domain.NewValidationError("rows", "too many rows in one request"))
		return
	}
	if req.Mapping[domain.FieldWine] == "" && req.Mapping[domain.FieldExternalID] == "" {
		h.writeError(c, domain.NewValidationError("mapping", "must bind wine or iwine"))
		return
	}

	report, err := h.service.ImportRows(c.Request.Context(), req.Rows, req.Mapping)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Sync resolves a batch of feed records pushed by the caller
func (h *Handler) Sync(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}
	if len(req.Records) > maxBatchUnits {
		h.writeError(c, domain.NewValidationError("records", "too many records in one request"))
		return
	}

	report, err := h.service.SyncRecords(c.Request.Context(), req.Records)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SyncFeed pulls records from the configured external feed and resolves them
func (h *Handler) SyncFeed(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "external feed is not configured"})
		return
	}

	var req FeedSyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, domain.NewValidationError("body", err.Error()))
			return
		}
	}
	if req.MaxRecords < 0 {
		h.writeError(c, domain.NewValidationError("maxRecords", "must not be negative"))
		return
	}

	report, err := h.service.SyncFeed(c.Request.Context(), h.feed, h.feedPageSize, req.MaxRecords)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetEntry returns one canonical entry
func (h *Handler) GetEntry(c *gin.Context) {
	entry, err := h.entries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// bindDescriptor decodes the request body into a descriptor using the same field
// parsing as an import row
func (h *Handler) bindDescriptor(c *gin.Context) (*domain.Descriptor, bool) {
	var req DescriptorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.NewValidationError("body", err.Error()))
		return nil, false
	}

	row := domain.ImportRow{
		domain.FieldWine:       req.Name,
		domain.FieldBrand:      req.Brand,
		domain.FieldProducer:   req.Distillery,
		domain.FieldCategory:   req.Category,
		domain.FieldVariant:    req.Variant,
		domain.FieldVintage:    req.Vintage,
		domain.FieldExternalID: req.ExternalID,
		domain.FieldProof:      domain.LooseString(req.Proof),
		domain.FieldABV:        domain.LooseString(req.ABV),
		domain.FieldSize:       req.Size,
		domain.FieldCountry:    req.Country,
		domain.FieldRegion:     req.Region,
		domain.FieldBarcode:    strings.Join(req.UPCs, " "),
	}
	d := usecase.DescriptorFromFields(row)
	if d.Name == "" && d.ExternalID == "" && len(d.Identifiers) == 0 {
		h.writeError(c, domain.NewValidationError("name", "name, externalId or upcs is required"))
		return nil, false
	}
	return &d, true
}

// writeError maps an engine error onto an HTTP status
func (h *Handler) writeError(c *gin.Context, err error) {
	kind := domain.Kind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEntryNotFound):
		status, kind = http.StatusNotFound, ""
	case kind == domain.KindValidation:
		status = http.StatusBadRequest
	case kind == domain.KindUnresolvable:
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFeedFailure):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}
