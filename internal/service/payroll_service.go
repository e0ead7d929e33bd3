package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atempo-hq/workcal-api/internal/models"
	"github.com/atempo-hq/workcal-api/pkg/calendar"
	"github.com/atempo-hq/workcal-api/pkg/config"
	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
	"github.com/atempo-hq/workcal-api/pkg/export"
)

type eventRangeReader interface {
	ListByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error)
}

type voucherCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheLookupObserver interface {
	ObserveCacheLookup(hit bool)
}

type reportFileStore interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	CleanupOlderThan(retention time.Duration) ([]string, error)
}

type reportDownloadSigner interface {
	Generate(userID, relPath string) (string, time.Time, error)
	Parse(token string) (userID, relPath string, expiresAt time.Time, err error)
}

// VoucherReport is a rendered monthly voucher export. DownloadURL is
// set when the report was archived and a signed link could be issued.
type VoucherReport struct {
	FileName    string
	ContentType string
	Content     []byte
	DownloadURL string
	ExpiresAt   time.Time
}

// ReportDownload bundles an archived report file for streaming.
type ReportDownload struct {
	File        *os.File
	FileName    string
	ContentType string
	SizeBytes   int64
	ExpiresAt   time.Time
}

// PayrollService derives worked-day counts and meal voucher amounts
// from the calendar state. Read-only.
type PayrollService struct {
	users   userReader
	events  eventRangeReader
	cache   voucherCache
	metrics cacheLookupObserver
	files   reportFileStore
	signer  reportDownloadSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	cfg     config.VoucherConfig
	reports config.ReportConfig
	logger  *zap.Logger
}

// NewPayrollService creates a service instance. files and signer may
// be nil, in which case reports are streamed inline only.
func NewPayrollService(users userReader, events eventRangeReader, cache voucherCache, metrics cacheLookupObserver, files reportFileStore, signer reportDownloadSigner, cfg config.VoucherConfig, reports config.ReportConfig, logger *zap.Logger) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollService{
		users:   users,
		events:  events,
		cache:   cache,
		metrics: metrics,
		files:   files,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		cfg:     cfg,
		reports: reports,
		logger:  logger,
	}
}

// MealVouchers computes the voucher summary for one user and month.
// A weekday counts as worked unless a non-declined remote work or paid
// leave event covers it.
func (s *PayrollService) MealVouchers(ctx context.Context, userID string, month, year int) (*models.VoucherSummary, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	cacheKey := fmt.Sprintf("vouchers:%s:%04d-%02d", userID, year, month)
	if s.cache != nil {
		var cached models.VoucherSummary
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.observeCache(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("voucher cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		s.observeCache(false)
	}

	start, end := calendar.MonthBounds(year, time.Month(month))
	events, err := s.events.ListByUserAndRange(ctx, userID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	excluded := excludedDates(events)

	workedDays := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if calendar.IsWeekend(day) {
			continue
		}
		if _, skip := excluded[day.Format(calendar.DayFormat)]; skip {
			continue
		}
		workedDays++
	}

	summary := &models.VoucherSummary{
		UserID:     userID,
		Month:      month,
		Year:       year,
		WorkedDays: workedDays,
		Amount:     workedDays * s.cfg.DailyRate,
		Currency:   s.cfg.Currency,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("voucher cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, nil
}

func (s *PayrollService) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveCacheLookup(hit)
	}
}

// excludedDates collects the days covered by a non-declined remote
// work or paid leave event. Declined events never reduce worked days.
func excludedDates(events []models.Event) map[string]struct{} {
	excluded := make(map[string]struct{}, len(events))
	for _, event := range events {
		if event.Type != models.EventRemoteWork && event.Type != models.EventPaidLeave {
			continue
		}
		if event.Status == models.EventDeclined {
			continue
		}
		excluded[event.Date.Format(calendar.DayFormat)] = struct{}{}
	}
	return excluded
}

// MonthlyReport renders the voucher summary with a per-day breakdown
// as CSV or PDF.
func (s *PayrollService) MonthlyReport(ctx context.Context, userID string, month, year int, format string) (*VoucherReport, error) {
	summary, err := s.MealVouchers(ctx, userID, month, year)
	if err != nil {
		return nil, err
	}

	start, end := calendar.MonthBounds(year, time.Month(month))
	events, err := s.events.ListByUserAndRange(ctx, userID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	byDate := make(map[string]models.Event, len(events))
	for _, event := range events {
		byDate[event.Date.Format(calendar.DayFormat)] = event
	}

	dataset := export.Dataset{Headers: []string{"date", "weekday", "worked", "event"}}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(calendar.DayFormat)
		worked := "yes"
		detail := ""
		if calendar.IsWeekend(day) {
			worked = "no"
			detail = "weekend"
		} else if event, ok := byDate[key]; ok && event.Status != models.EventDeclined {
			worked = "no"
			detail = fmt.Sprintf("%s (%s)", event.Type, event.Status)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":    key,
			"weekday": day.Weekday().String(),
			"worked":  worked,
			"event":   detail,
		})
	}
	dataset.Rows = append(dataset.Rows, map[string]string{
		"date":    "total",
		"weekday": "",
		"worked":  fmt.Sprintf("%d", summary.WorkedDays),
		"event":   fmt.Sprintf("%d %s", summary.Amount, summary.Currency),
	})

	base := fmt.Sprintf("meal-vouchers-%s-%04d-%02d", userID, year, month)
	var report *VoucherReport
	switch strings.ToLower(format) {
	case "", "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		report = &VoucherReport{FileName: base + ".csv", ContentType: export.ContentTypeCSV, Content: content}
	case "pdf":
		title := fmt.Sprintf("Meal vouchers %04d-%02d", year, month)
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		report = &VoucherReport{FileName: base + ".pdf", ContentType: export.ContentTypePDF, Content: content}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format, expected csv or pdf")
	}

	s.archiveReport(userID, month, report)
	return report, nil
}

// archiveReport persists the rendered report and attaches a signed
// download link. Archiving is best effort; the inline stream still
// serves the caller when the store is unavailable.
func (s *PayrollService) archiveReport(userID string, month int, report *VoucherReport) {
	if s.files == nil || s.signer == nil {
		return
	}
	relPath := filepath.Join(userID, report.FileName)
	if _, err := s.files.Save(relPath, report.Content); err != nil {
		s.logger.Warn("report archive write failed", zap.String("path", relPath), zap.Error(err))
		return
	}
	if removed, err := s.files.CleanupOlderThan(s.reports.Retention); err != nil {
		s.logger.Warn("report retention cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		s.logger.Debug("pruned expired reports", zap.Int("count", len(removed)))
	}
	token, expiresAt, err := s.signer.Generate(userID, relPath)
	if err != nil {
		s.logger.Warn("report download token generation failed", zap.String("path", relPath), zap.Error(err))
		return
	}
	prefix := strings.TrimRight(s.reports.APIPrefix, "/")
	report.DownloadURL = fmt.Sprintf("%s/users/%s/meal-vouchers/%d/download?token=%s", prefix, userID, month, token)
	report.ExpiresAt = expiresAt
}

// DownloadReport validates a signed token and opens the archived
// report it references. The token must belong to the requested user.
func (s *PayrollService) DownloadReport(ctx context.Context, userID, token string) (*ReportDownload, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report downloads not configured")
	}
	tokenUser, relPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	if tokenUser != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download token does not match user")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report metadata")
	}
	return &ReportDownload{
		File:        file,
		FileName:    filepath.Base(relPath),
		ContentType: reportContentType(relPath),
		SizeBytes:   info.Size(),
		ExpiresAt:   expiresAt,
	}, nil
}

func reportContentType(relPath string) string {
	if strings.EqualFold(filepath.Ext(relPath), ".pdf") {
		return export.ContentTypePDF
	}
	return export.ContentTypeCSV
}
