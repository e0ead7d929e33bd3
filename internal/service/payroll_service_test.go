package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atempo-hq/workcal-api/internal/models"
	"github.com/atempo-hq/workcal-api/pkg/config"
	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
	"github.com/atempo-hq/workcal-api/pkg/storage"
)

type mockEventRangeReader struct {
	events []models.Event
	err    error
}

func (m *mockEventRangeReader) ListByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Event
	for _, event := range m.events {
		if event.UserID == userID && !event.Date.Before(start) && !event.Date.After(end) {
			out = append(out, event)
		}
	}
	return out, nil
}

type mockVoucherCache struct {
	values map[string][]byte
	hits   int
	writes int
}

func (m *mockVoucherCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *mockVoucherCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	m.writes++
	return nil
}

type mockCacheObserver struct {
	hits   int
	misses int
}

func (m *mockCacheObserver) ObserveCacheLookup(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func monthEvent(userID, date string, eventType models.EventType, status models.EventStatus) models.Event {
	day, _ := time.Parse("2006-01-02", date)
	return models.Event{ID: date, Date: day, Type: eventType, Status: status, UserID: userID}
}

func payrollFixture(events []models.Event) (*PayrollService, *mockVoucherCache, *mockCacheObserver) {
	users := &mockUserReader{users: map[string]*models.User{
		"u1": {ID: "u1", Role: models.RoleEmployee},
	}}
	cache := &mockVoucherCache{}
	observer := &mockCacheObserver{}
	cfg := config.VoucherConfig{DailyRate: 8, Currency: "EUR", CacheTTL: time.Minute}
	service := NewPayrollService(users, &mockEventRangeReader{events: events}, cache, observer, nil, nil, cfg, config.ReportConfig{}, zap.NewNop())
	return service, cache, observer
}

// archivingPayrollFixture wires a real on-disk report store and signer.
func archivingPayrollFixture(t *testing.T, events []models.Event) *PayrollService {
	t.Helper()
	users := &mockUserReader{users: map[string]*models.User{
		"u1": {ID: "u1", Role: models.RoleEmployee},
	}}
	store, err := storage.NewReportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("test_secret", time.Hour)
	cfg := config.VoucherConfig{DailyRate: 8, Currency: "EUR", CacheTTL: time.Minute}
	reports := config.ReportConfig{Retention: 30 * 24 * time.Hour, APIPrefix: "/api"}
	return NewPayrollService(users, &mockEventRangeReader{events: events}, nil, nil, store, signer, cfg, reports, zap.NewNop())
}

func TestPayrollServiceMealVouchers(t *testing.T) {
	// April 2024 has 22 weekdays. The accepted remote work removes one;
	// the declined paid leave removes nothing.
	service, _, _ := payrollFixture([]models.Event{
		monthEvent("u1", "2024-04-02", models.EventRemoteWork, models.EventAccepted),
		monthEvent("u1", "2024-04-10", models.EventPaidLeave, models.EventDeclined),
	})

	summary, err := service.MealVouchers(context.Background(), "u1", 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, 21, summary.WorkedDays)
	assert.Equal(t, 21*8, summary.Amount)
	assert.Equal(t, "EUR", summary.Currency)
	assert.Equal(t, 4, summary.Month)
	assert.Equal(t, 2024, summary.Year)
}

func TestPayrollServiceMealVouchersPendingExcludes(t *testing.T) {
	service, _, _ := payrollFixture([]models.Event{
		monthEvent("u1", "2024-04-03", models.EventPaidLeave, models.EventPending),
	})

	summary, err := service.MealVouchers(context.Background(), "u1", 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, 21, summary.WorkedDays)
}

func TestPayrollServiceMealVouchersWeekendEventNoEffect(t *testing.T) {
	// 2024-04-06 is a Saturday; excluding it changes nothing.
	service, _, _ := payrollFixture([]models.Event{
		monthEvent("u1", "2024-04-06", models.EventRemoteWork, models.EventAccepted),
	})

	summary, err := service.MealVouchers(context.Background(), "u1", 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, 22, summary.WorkedDays)
}

func TestPayrollServiceMealVouchersValidation(t *testing.T) {
	service, _, _ := payrollFixture(nil)

	_, err := service.MealVouchers(context.Background(), "u1", 0, 2024)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	_, err = service.MealVouchers(context.Background(), "u1", 13, 2024)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	_, err = service.MealVouchers(context.Background(), "missing", 4, 2024)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestPayrollServiceMealVouchersCache(t *testing.T) {
	service, cache, observer := payrollFixture(nil)

	first, err := service.MealVouchers(context.Background(), "u1", 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.writes)
	assert.Equal(t, 1, observer.misses)
	assert.Contains(t, cache.values, "vouchers:u1:2024-04")

	second, err := service.MealVouchers(context.Background(), "u1", 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.writes)
	assert.Equal(t, 1, observer.hits)
}

func TestPayrollServiceMonthlyReportCSV(t *testing.T) {
	service, _, _ := payrollFixture([]models.Event{
		monthEvent("u1", "2024-04-02", models.EventRemoteWork, models.EventAccepted),
	})

	report, err := service.MonthlyReport(context.Background(), "u1", 4, 2024, "csv")
	require.NoError(t, err)
	assert.Equal(t, "meal-vouchers-u1-2024-04.csv", report.FileName)
	assert.Equal(t, "text/csv", report.ContentType)

	body := string(report.Content)
	assert.True(t, strings.HasPrefix(body, "date,weekday,worked,event"))
	assert.Contains(t, body, "2024-04-02,Tuesday,no,REMOTE_WORK (ACCEPTED)")
	// 30 day rows plus header and total.
	assert.Len(t, strings.Split(strings.TrimSpace(body), "\n"), 32)
}

func TestPayrollServiceMonthlyReportPDF(t *testing.T) {
	service, _, _ := payrollFixture(nil)

	report, err := service.MonthlyReport(context.Background(), "u1", 4, 2024, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, strings.HasPrefix(string(report.Content), "%PDF"))
}

func TestPayrollServiceMonthlyReportBadFormat(t *testing.T) {
	service, _, _ := payrollFixture(nil)

	_, err := service.MonthlyReport(context.Background(), "u1", 4, 2024, "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestPayrollServiceMonthlyReportWithoutStoreStreamsOnly(t *testing.T) {
	service, _, _ := payrollFixture(nil)

	report, err := service.MonthlyReport(context.Background(), "u1", 4, 2024, "csv")
	require.NoError(t, err)
	assert.NotEmpty(t, report.Content)
	assert.Empty(t, report.DownloadURL)
}

func TestPayrollServiceMonthlyReportArchivesAndSigns(t *testing.T) {
	service := archivingPayrollFixture(t, nil)

	report, err := service.MonthlyReport(context.Background(), "u1", 4, 2024, "csv")
	require.NoError(t, err)
	assert.Contains(t, report.DownloadURL, "/api/users/u1/meal-vouchers/4/download?token=")
	assert.False(t, report.ExpiresAt.IsZero())
}

func TestPayrollServiceDownloadReportRoundtrip(t *testing.T) {
	service := archivingPayrollFixture(t, nil)

	report, err := service.MonthlyReport(context.Background(), "u1", 4, 2024, "csv")
	require.NoError(t, err)
	token := report.DownloadURL[strings.Index(report.DownloadURL, "token=")+len("token="):]

	download, err := service.DownloadReport(context.Background(), "u1", token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck

	assert.Equal(t, "meal-vouchers-u1-2024-04.csv", download.FileName)
	assert.Equal(t, "text/csv", download.ContentType)
	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Equal(t, report.Content, content)
}

func TestPayrollServiceDownloadReportWrongUser(t *testing.T) {
	service := archivingPayrollFixture(t, nil)

	report, err := service.MonthlyReport(context.Background(), "u1", 4, 2024, "csv")
	require.NoError(t, err)
	token := report.DownloadURL[strings.Index(report.DownloadURL, "token=")+len("token="):]

	_, err = service.DownloadReport(context.Background(), "u2", token)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestPayrollServiceDownloadReportBadToken(t *testing.T) {
	service := archivingPayrollFixture(t, nil)

	_, err := service.DownloadReport(context.Background(), "u1", "not-a-token")
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}
