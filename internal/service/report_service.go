package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/melo-app/melo-api/internal/models"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
	"github.com/melo-app/melo-api/pkg/export"
	"github.com/melo-app/melo-api/pkg/storage"
)

type reportWorkLister interface {
	List(ctx context.Context, filter models.WorkFilter) ([]models.Work, int, error)
}

type reportRatingReader interface {
	RatingSummary(ctx context.Context, userID string) (*models.UserRatingSummary, error)
}

type reportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportFormat selects the rendered output type.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportConfig tunes report generation behaviour.
type ReportConfig struct {
	Enabled   bool
	APIPrefix string
	ResultTTL time.Duration
}

// ReportResult captures successful generation metadata.
type ReportResult struct {
	URL       string       `json:"url"`
	Format    ReportFormat `json:"format"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// ReportService renders employer work summaries and serves them through
// signed, expiring download links.
type ReportService struct {
	works   reportWorkLister
	ratings reportRatingReader
	storage reportFileStorage
	signer  *storage.SignedURLSigner
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     ReportConfig
}

// NewReportService constructs a ReportService.
func NewReportService(works reportWorkLister, ratings reportRatingReader, fileStore reportFileStorage, signer *storage.SignedURLSigner, cfg ReportConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		works:   works,
		ratings: ratings,
		storage: fileStore,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		cfg:     cfg,
	}
}

// Enabled reports whether report generation is switched on.
func (s *ReportService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.storage != nil && s.signer != nil
}

// GenerateWorkSummary renders a summary of the employer's works and stores
// it for signed download. Only the employer themselves (or an admin acting
// for them) may request it.
func (s *ReportService) GenerateWorkSummary(ctx context.Context, employerID string, format ReportFormat, claims *models.JWTClaims) (*ReportResult, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reports are disabled")
	}
	if claims == nil || (claims.UserID != employerID && !claims.IsAdmin()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot generate reports for another user")
	}
	if format != ReportFormatCSV && format != ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	dataset, title, err := s.buildWorkSummary(ctx, employerID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := fmt.Sprintf("work-summary-%s-%d.%s", employerID, time.Now().UTC().Unix(), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(employerID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ReportResult{
		URL:       fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a signed token and opens the stored report file.
// Claims are optional: an authenticated caller gets attributed in the access
// log, an anonymous one relies on the token alone.
func (s *ReportService) ResolveDownload(token string, claims *models.JWTClaims) (*ReportDownload, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reports are disabled")
	}
	owner, relPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report no longer available")
	}
	downloader := "anonymous"
	if claims != nil {
		downloader = claims.UserID
	}
	s.logger.Info("report downloaded",
		zap.String("owner", owner),
		zap.String("downloader", downloader),
		zap.String("file", relPath))
	parts := strings.Split(relPath, "/")
	return &ReportDownload{
		File:      file,
		Filename:  parts[len(parts)-1],
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired report files periodically.
func (s *ReportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if !s.Enabled() || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
				if err != nil {
					s.logger.Sugar().Warnw("report cleanup failed", "error", err)
					continue
				}
				if len(removed) > 0 {
					s.logger.Sugar().Infow("removed expired reports", "count", len(removed))
				}
			}
		}
	}()
}

func (s *ReportService) buildWorkSummary(ctx context.Context, employerID string) (export.Dataset, string, error) {
	var rows []map[string]string
	for page := 1; ; page++ {
		works, total, err := s.works.List(ctx, models.WorkFilter{
			EmployerID: employerID,
			Page:       page,
			PageSize:   models.MaxPageSize,
		})
		if err != nil {
			return export.Dataset{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
		}
		for _, w := range works {
			assignee := ""
			if w.EmployeeID != nil {
				assignee = *w.EmployeeID
			}
			rows = append(rows, map[string]string{
				"Title":    w.Title,
				"Category": w.Category,
				"Status":   string(w.Status),
				"Wage":     strconv.FormatFloat(w.Wage, 'f', 2, 64),
				"Payment":  string(w.PaymentType),
				"Assignee": assignee,
				"Created":  w.CreatedAt.Format("2006-01-02"),
			})
		}
		if len(works) == 0 || len(rows) >= total {
			break
		}
	}

	title := "Work Summary"
	if summary, err := s.ratings.RatingSummary(ctx, employerID); err == nil && summary.ReviewCount > 0 {
		title = fmt.Sprintf("Work Summary (rating %.1f from %d reviews)", summary.AverageRating, summary.ReviewCount)
	}
	return export.Dataset{
		Headers: []string{"Title", "Category", "Status", "Wage", "Payment", "Assignee", "Created"},
		Rows:    rows,
	}, title, nil
}
