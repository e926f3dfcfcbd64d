package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gapscan/internal/domain"
	"gapscan/internal/ingestion"
)

type Handler struct {
	svc            domain.AnalysisService
	maxUploadBytes int64
}

func NewHandler(svc domain.AnalysisService, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "gapscan backend running"})
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /upload
func (h *Handler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "too_large", fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondServiceError(c, &domain.ValidationError{Field: "file", Reason: "multipart field \"file\" is required"})
		return
	}
	if err := ingestion.CheckFilename(fh.Filename); err != nil {
		respondServiceError(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer f.Close()

	records, err := ingestion.ParseCSV(f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	rows, err := h.svc.Ingest(c.Request.Context(), records)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data ingested successfully", "rows": rows})
}

type analyzeRequest struct {
	Trigger string `json:"trigger"`
}

// POST /analyze
func (h *Handler) Analyze(c *gin.Context) {
	if c.Request.ContentLength > 0 {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondServiceError(c, &domain.ValidationError{Field: "body", Reason: err.Error()})
			return
		}
	}
	analysis, err := h.svc.Analyze(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// GET /domains
// Abstracts grouped by cluster id, keyed by the id as a string.
func (h *Handler) Domains(c *gin.Context) {
	groups, err := h.svc.Domains(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotAnalyzed) {
			RespondError(c, http.StatusConflict, "not_analyzed", errors.New("Run /analyze first"))
			return
		}
		respondServiceError(c, err)
		return
	}
	out := make(map[string][]string, len(groups))
	for _, g := range groups {
		abstracts := make([]string, len(g.Records))
		for i, r := range g.Records {
			abstracts[i] = r.Abstract
		}
		out[strconv.Itoa(g.Cluster)] = abstracts
	}
	c.JSON(http.StatusOK, out)
}

// GET /domains/:id
func (h *Handler) Members(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondServiceError(c, &domain.ValidationError{Field: "id", Reason: "cluster id must be an integer"})
		return
	}
	members, err := h.svc.Members(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.ClusterGroup{Cluster: id, Records: members})
}
