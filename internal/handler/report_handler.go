package handler

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/internal/service"
	"github.com/noah-isme/student-clubs-api/pkg/engagement"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/response"
	"github.com/noah-isme/student-clubs-api/pkg/storage"
)

type reportService interface {
	Submit(ctx context.Context, req dto.ReportRequest, actor *models.JWTClaims) (*service.SubmittedReport, error)
	GetStatus(ctx context.Context, id string) (*dto.ReportStatusResponse, error)
	DownloadLink(ctx context.Context, id string) (*dto.DownloadLinkResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
	CloudSave(ctx context.Context, id string) (*dto.CloudSaveResponse, error)
}

type exportService interface {
	AllData(ctx context.Context, format models.ReportFormat, upcomingOnly bool) (*service.FileExport, error)
	StudentReport(ctx context.Context, studentID string, kind service.StudentReportKind) (*service.FileExport, error)
	SaveStudentReport(ctx context.Context, studentID string, kind service.StudentReportKind) (*dto.CloudSaveResponse, error)
	ListStudentReports(ctx context.Context, studentID string) []storage.RemoteObject
}

type engagementService interface {
	Ranked(ctx context.Context) ([]engagement.Snapshot, error)
}

// ReportHandler exposes engagement, report job and export endpoints.
type ReportHandler struct {
	reports    reportService
	exports    exportService
	engagement engagementService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, exports exportService, engagement engagementService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports, engagement: engagement}
}

// Engagement godoc
// @Summary Club engagement ranking
// @Description Percentages are relative to the most active club.
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/engagement [get]
func (h *ReportHandler) Engagement(c *gin.Context) {
	ranked, err := h.engagement.Ranked(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, engagement.Rounded(ranked), nil)
}

// SubmitClubs godoc
// @Summary Queue a report job
// @Description Defaults to the clubs activity PDF.
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest false "Report options"
// @Success 202 {object} response.Envelope
// @Router /reports/clubs [post]
func (h *ReportHandler) SubmitClubs(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.ReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
			return
		}
	}
	submitted, err := h.reports.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, submitted.Job, path.Join(path.Dir(c.FullPath()), submitted.Job.ID, "status"))
}

// Status godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/status [get]
func (h *ReportHandler) Status(c *gin.Context) {
	id, ok := pathID(c, "id", "report")
	if !ok {
		return
	}
	status, err := h.reports.GetStatus(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// DownloadLink godoc
// @Summary Signed download link for a finished report
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/download [get]
func (h *ReportHandler) DownloadLink(c *gin.Context) {
	id, ok := pathID(c, "id", "report")
	if !ok {
		return
	}
	link, err := h.reports.DownloadLink(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a report via signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.reports.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck
	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report"))
		return
	}
	contentType := "text/csv"
	if download.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	response.AttachmentFromReader(c, download.Filename, contentType, info.Size(), download.File)
}

// CloudSave godoc
// @Summary Upload a finished report to cloud storage
// @Description Upstream failures are reported as success=false with HTTP 200.
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/cloud [post]
func (h *ReportHandler) CloudSave(c *gin.Context) {
	id, ok := pathID(c, "id", "report")
	if !ok {
		return
	}
	result, err := h.reports.CloudSave(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportAll godoc
// @Summary Export clubs, events and marks
// @Tags Reports
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Param upcoming query bool false "Only upcoming events"
// @Success 200 {file} binary
// @Router /exports/all [get]
func (h *ReportHandler) ExportAll(c *gin.Context) {
	format := models.ReportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	file, err := h.exports.AllData(c.Request.Context(), format, c.Query("upcoming") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// StudentReport godoc
// @Summary Download one of my reports
// @Tags Reports
// @Produce text/csv
// @Param kind path string true "clubs, events or grades"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /me/reports/{kind} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	file, err := h.exports.StudentReport(c.Request.Context(), claims.UserID, service.StudentReportKind(c.Param("kind")))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// SaveStudentReport godoc
// @Summary Save one of my reports to cloud storage
// @Description Upstream failures are reported as success=false with HTTP 200.
// @Tags Reports
// @Produce json
// @Param kind path string true "clubs, events or grades"
// @Success 200 {object} response.Envelope
// @Router /me/reports/{kind}/cloud [post]
func (h *ReportHandler) SaveStudentReport(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.exports.SaveStudentReport(c.Request.Context(), claims.UserID, service.StudentReportKind(c.Param("kind")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SavedStudentReports godoc
// @Summary List my reports saved to cloud storage
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/reports [get]
func (h *ReportHandler) SavedStudentReports(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.exports.ListStudentReports(c.Request.Context(), claims.UserID), nil)
}

func sendFile(c *gin.Context, file *service.FileExport) {
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
