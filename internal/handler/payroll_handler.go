package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atempo-hq/workcal-api/internal/models"
	"github.com/atempo-hq/workcal-api/internal/service"
	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
	"github.com/atempo-hq/workcal-api/pkg/response"
)

type payrollService interface {
	MealVouchers(ctx context.Context, userID string, month, year int) (*models.VoucherSummary, error)
	MonthlyReport(ctx context.Context, userID string, month, year int, format string) (*service.VoucherReport, error)
	DownloadReport(ctx context.Context, userID, token string) (*service.ReportDownload, error)
}

// PayrollHandler exposes the meal voucher endpoints.
type PayrollHandler struct {
	service payrollService
}

// NewPayrollHandler constructs the handler.
func NewPayrollHandler(service payrollService) *PayrollHandler {
	return &PayrollHandler{service: service}
}

// MealVouchers godoc
// @Summary Compute the meal voucher amount for a user and month
// @Tags Payroll
// @Produce json
// @Param id path string true "User ID"
// @Param month path int true "Month (1-12)"
// @Param year query int false "Year, defaults to the current year"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/meal-vouchers/{month} [get]
func (h *PayrollHandler) MealVouchers(c *gin.Context) {
	userID, month, year, err := voucherParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.service.MealVouchers(c.Request.Context(), userID, month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Export godoc
// @Summary Download the monthly meal voucher report
// @Tags Payroll
// @Produce octet-stream
// @Param id path string true "User ID"
// @Param month path int true "Month (1-12)"
// @Param year query int false "Year, defaults to the current year"
// @Param format query string false "Report format: csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /users/{id}/meal-vouchers/{month}/export [get]
func (h *PayrollHandler) Export(c *gin.Context) {
	userID, month, year, err := voucherParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	report, err := h.service.MonthlyReport(c.Request.Context(), userID, month, year, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	if report.DownloadURL != "" {
		c.Header("X-Download-URL", report.DownloadURL)
	}
	c.Data(http.StatusOK, report.ContentType, report.Content)
}

// Download godoc
// @Summary Download an archived voucher report via signed token
// @Tags Payroll
// @Produce octet-stream
// @Param id path string true "User ID"
// @Param month path int true "Month (1-12)"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /users/{id}/meal-vouchers/{month}/download [get]
func (h *PayrollHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	result, err := h.service.DownloadReport(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.ContentType, result.File, nil)
}

func voucherParams(c *gin.Context) (string, int, int, error) {
	userID := c.Param("id")

	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "month must be a number between 1 and 12")
	}

	year := time.Now().UTC().Year()
	if raw := c.Query("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil {
			return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "year must be a number")
		}
	}

	return userID, month, year, nil
}
