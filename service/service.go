package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"health-report-service/apperr"
	"health-report-service/imagecodec"
	"health-report-service/metrics"
	"health-report-service/models"
	"health-report-service/parser"
	"health-report-service/scorer"
)

// Store persists and loads reports.
type Store interface {
	Create(ctx context.Context, fields models.ReportFields) (*models.Report, error)
	GetByID(ctx context.Context, id int64) (*models.Report, error)
}

// state is where a submission is in its lifecycle; it only shows up in logs and metrics.
type state string

const (
	stateReceived   state = "received"
	stateScoring    state = "scoring"
	statePersisting state = "persisting"
	stateDone       state = "done"
	stateFailed     state = "failed"
)

// ReportService runs report submissions: optional scoring first, then a single insert.
type ReportService struct {
	store  Store
	scorer scorer.Scorer

	// Card size used when the caller does not pick one.
	defaultWidth  int
	defaultHeight int
}

// NewReportService creates the submission orchestrator.
func NewReportService(store Store, sc scorer.Scorer, defaultWidth, defaultHeight int) *ReportService {
	return &ReportService{
		store:         store,
		scorer:        sc,
		defaultWidth:  defaultWidth,
		defaultHeight: defaultHeight,
	}
}

// CreateReport scores the wound photo when no score was supplied and stores the report.
// Files saved for a failed submission are removed.
func (s *ReportService) CreateReport(ctx context.Context, form models.ReportForm, files models.ReportFiles) (report *models.Report, err error) {
	logger := log.WithFields(log.Fields{"nama": form.Nama, "has_wound_image": files.Wound != nil})
	st := stateReceived
	defer func() {
		if err != nil {
			logger.WithError(err).WithField("state", st).Warn("Report submission failed")
			metrics.ReportsTotal.WithLabelValues(string(stateFailed)).Inc()
			discard(files)
			return
		}
		metrics.ReportsTotal.WithLabelValues(string(stateDone)).Inc()
	}()

	fields, err := buildFields(form, files)
	if err != nil {
		return nil, err
	}

	if fields.WoundScore == nil && files.Wound != nil {
		st = stateScoring
		score, err := s.score(ctx, files.Wound)
		if err != nil {
			return nil, err
		}
		fields.WoundScore = &score
	}

	st = statePersisting
	report, err = s.store.Create(ctx, fields)
	if err != nil {
		return nil, err
	}

	st = stateDone
	logger.WithFields(log.Fields{"id": report.ID, "wound_score": report.WoundScore}).Info("Report created")
	return report, nil
}

// ScoreOnly scores an uploaded wound photo without creating a report.
func (s *ReportService) ScoreOnly(ctx context.Context, file *models.UploadedFile) (int, error) {
	if file == nil || file.Path == "" {
		return 0, apperr.New(apperr.KindValidation, "missing file")
	}
	return s.score(ctx, file)
}

// GetReport loads a report, nil when it does not exist.
func (s *ReportService) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	return s.store.GetByID(ctx, id)
}

// GenerateReportImage renders the report card. Zero sizes fall back to the service defaults.
func (s *ReportService) GenerateReportImage(report *models.Report, opts imagecodec.RenderOptions) ([]byte, error) {
	if opts.Width == 0 {
		opts.Width = s.defaultWidth
	}
	if opts.Height == 0 {
		opts.Height = s.defaultHeight
	}
	if opts.Format == "" {
		opts.Format = imagecodec.FormatJPEG
	}

	out, err := imagecodec.RenderReport(report, opts)
	metrics.ImagesRenderedTotal.WithLabelValues(string(opts.Format), metrics.Result(err)).Inc()
	return out, err
}

func (s *ReportService) score(ctx context.Context, file *models.UploadedFile) (int, error) {
	start := time.Now()
	source := s.scorer.SourceName()
	defer func() {
		metrics.ScoreDurationSeconds.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	payload, err := imagecodec.EncodeImage(file.Path, file.MediaType)
	if err != nil {
		metrics.ScoreRequestsTotal.WithLabelValues(source, failureLabel(err)).Inc()
		return 0, err
	}

	result, err := s.scorer.ScoreWound(ctx, payload)
	if err != nil {
		metrics.ScoreRequestsTotal.WithLabelValues(source, failureLabel(err)).Inc()
		return 0, err
	}
	metrics.ScoreRequestsTotal.WithLabelValues(source, "ok").Inc()

	log.WithFields(log.Fields{
		"source":    source,
		"score":     result.SeverityScore,
		"reasoning": result.Reasoning,
	}).Debug("Wound scored")
	return result.SeverityScore, nil
}

// buildFields maps the form vocabulary onto storage columns and checks required fields.
func buildFields(form models.ReportForm, files models.ReportFiles) (models.ReportFields, error) {
	f := models.ReportFields{
		Name:         strings.TrimSpace(form.Nama),
		Phone:        strings.TrimSpace(form.NomorHp),
		Email:        optional(form.Email),
		Facility:     firstNonEmpty(form.LokasiPuskesmas, form.Lokasi),
		Gender:       models.Gender(strings.ToLower(firstNonEmpty(form.JenisKelamin, form.Gender))),
		Description:  strings.TrimSpace(form.Deskripsi),
		IncidentDate: optional(form.Tanggal),
	}

	var missing []string
	if f.Name == "" {
		missing = append(missing, "nama")
	}
	if f.Phone == "" {
		missing = append(missing, "nomorHp")
	}
	if files.Evidence == nil || files.Evidence.Path == "" {
		missing = append(missing, "bukti_pendukung")
	}
	if len(missing) > 0 {
		return f, apperr.New(apperr.KindValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if !f.Gender.Valid() {
		return f, apperr.New(apperr.KindValidation, "jenis_kelamin must be %q or %q", models.GenderMale, models.GenderFemale)
	}

	f.EvidenceImage = files.Evidence.Path
	if files.Wound != nil {
		f.WoundImage = &files.Wound.Path
	}

	if raw := strings.TrimSpace(form.WoundScore); raw != "" {
		score, err := strconv.Atoi(raw)
		if err != nil || score < parser.MinSeverity || score > parser.MaxSeverity {
			return f, apperr.New(apperr.KindValidation, "wound_score must be an integer between %d and %d",
				parser.MinSeverity, parser.MaxSeverity)
		}
		f.WoundScore = &score
	}
	return f, nil
}

// discard removes the uploads of a failed submission.
func discard(files models.ReportFiles) {
	for _, f := range []*models.UploadedFile{files.Evidence, files.Wound} {
		if f == nil || f.Path == "" {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.WithError(err).WithField("path", f.Path).Warn("Failed to remove orphaned upload")
		}
	}
}

func failureLabel(err error) string {
	if kind := apperr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
