package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"health-report-service/apperr"
	"health-report-service/imagecodec"
	"health-report-service/models"
	"health-report-service/version"
)

const serviceName = "health-report-service"

// ReportService is what the handlers need from the orchestrator.
type ReportService interface {
	CreateReport(ctx context.Context, form models.ReportForm, files models.ReportFiles) (*models.Report, error)
	ScoreOnly(ctx context.Context, file *models.UploadedFile) (int, error)
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	GenerateReportImage(report *models.Report, opts imagecodec.RenderOptions) ([]byte, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers represents the HTTP handlers
type Handlers struct {
	svc     ReportService
	uploads *Uploader
	db      Pinger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(svc ReportService, uploads *Uploader, db Pinger) *Handlers {
	return &Handlers{svc: svc, uploads: uploads, db: db}
}

// RegisterRoutes mounts the report routes on group.
func (h *Handlers) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/predict", h.PredictSeverity)
	group.POST("", h.CreateReport)
	group.GET("/:id", h.GetReport)
	group.GET("/:id/image", h.GetReportImage)
}

// PredictSeverity scores a wound photo without creating a report.
func (h *Handlers) PredictSeverity(c *gin.Context) {
	h.uploads.limitBody(c, 1)

	file, err := h.uploads.Save(c, fieldWoundImage, true)
	if err != nil {
		respondError(c, err)
		return
	}
	// The photo is only needed for this call.
	defer h.uploads.Remove(file)

	score, err := h.svc.ScoreOnly(c.Request.Context(), file)
	if err != nil {
		log.WithError(err).Warn("Wound scoring failed")
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": "Gagal memproses AI: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"severity_score": score})
}

// CreateReport handles a full report submission.
func (h *Handlers) CreateReport(c *gin.Context) {
	h.uploads.limitBody(c, 2)

	var form models.ReportForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid form"))
		return
	}

	evidence, err := h.uploads.Save(c, fieldEvidence, false)
	if err != nil {
		respondError(c, err)
		return
	}
	wound, err := h.uploads.Save(c, fieldWoundImage, false)
	if err != nil {
		h.uploads.Remove(evidence)
		respondError(c, err)
		return
	}

	report, err := h.svc.CreateReport(c.Request.Context(), form, models.ReportFiles{Evidence: evidence, Wound: wound})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Laporan kesehatan berhasil dibuat.",
		"data":    report,
	})
}

// GetReport returns a single report.
func (h *Handlers) GetReport(c *gin.Context) {
	report, ok := h.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

// GetReportImage renders the report card as a downloadable file.
func (h *Handlers) GetReportImage(c *gin.Context) {
	format, err := imagecodec.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	width, err := queryInt(c, "width")
	if err != nil {
		respondError(c, err)
		return
	}
	height, err := queryInt(c, "height")
	if err != nil {
		respondError(c, err)
		return
	}

	report, ok := h.loadReport(c)
	if !ok {
		return
	}

	out, err := h.svc.GenerateReportImage(report, imagecodec.RenderOptions{Width: width, Height: height, Format: format})
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			respondError(c, err)
			return
		}
		log.WithError(err).WithField("id", report.ID).Error("Failed to render report image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal membuat gambar laporan."})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%d.%s"`, report.ID, format.Extension()))
	c.Data(http.StatusOK, format.ContentType(), out)
}

// Health reports service and database health.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"service":  serviceName,
			"database": "unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  serviceName,
		"database": "ok",
	})
}

// Version returns build information.
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get(serviceName))
}

// Root lists the available routes.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Sehat Monitor report API is running",
		"service": serviceName,
		"routes": []string{
			"POST /api/reports/predict",
			"POST /api/reports",
			"GET /api/reports/:id",
			"GET /api/reports/:id/image?format=jpeg|png|svg&width=&height=",
			"GET /health",
			"GET /version",
			"GET /metrics",
		},
	})
}

func (h *Handlers) loadReport(c *gin.Context) (*models.Report, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid report id"))
		return nil, false
	}

	report, err := h.svc.GetReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Laporan tidak ditemukan."})
		return nil, false
	}
	return report, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.New(apperr.KindValidation, "%s must be an integer", key)
	}
	return v, nil
}

// respondError writes err with the status chosen where it was raised.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
