package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/internal/repository"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/jobs"
	"github.com/noah-isme/student-clubs-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListPending(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Submit(job jobs.Job) (*jobs.Handle, error)
}

type reportExporter interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
	SignedLink(reportID, relPath string) (*SignedDownload, error)
	ParseToken(token string, allowExpired bool) (storage.DownloadClaims, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
	SaveStoredReport(ctx context.Context, relPath string, format models.ReportFormat) *dto.CloudSaveResponse
}

// ReportService orchestrates report job lifecycle management.
type ReportService struct {
	repo     reportJobStore
	queue    jobDispatcher
	exporter reportExporter
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// SubmittedReport pairs the persisted job with its in-process handle.
type SubmittedReport struct {
	Job    *dto.ReportJobResponse
	Handle *jobs.Handle
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, exporter reportExporter, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 72 * time.Hour
	}
	return &ReportService{repo: repo, queue: queue, exporter: exporter, logger: logger, cfg: cfg}
}

// Submit validates the request, persists the job and hands it to the worker
// pool. The returned handle settles once the job succeeded or failed for good.
func (s *ReportService) Submit(ctx context.Context, req dto.ReportRequest, actor *models.JWTClaims) (*SubmittedReport, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.Type == "" {
		req.Type = models.ReportTypeClubsActivity
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	if req.Type == models.ReportTypeClubsActivity {
		req.Format = models.ReportFormatPDF
	}
	if req.Format == "" {
		req.Format = models.ReportFormatCSV
	}
	if req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if req.RecentPosts < 0 || req.RecentPosts > 50 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recentPosts must be between 0 and 50")
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Params:    models.ReportJobParams{Format: req.Format, UpcomingOnly: req.UpcomingOnly, RecentPosts: req.RecentPosts},
		Status:    models.ReportStatusQueued,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	handle, err := s.queue.Submit(jobs.Job{ID: job.ID, Type: string(job.Type)})
	if err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.logger.Info("report job submitted", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return &SubmittedReport{
		Job:    &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress},
		Handle: handle,
	}, nil
}

// GetStatus exposes job metadata. The persisted row is authoritative so
// failures stay visible after a restart.
func (s *ReportService) GetStatus(ctx context.Context, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.ReportStatusResponse{
		ID:         job.ID,
		Type:       job.Type,
		Status:     job.Status,
		Progress:   job.Progress,
		Attempts:   job.Attempts,
		ResultURL:  job.ResultURL,
		FinishedAt: job.FinishedAt,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// DownloadLink signs a fresh link for a finished report.
func (s *ReportService) DownloadLink(ctx context.Context, id string) (*dto.DownloadLinkResponse, error) {
	job, err := s.finished(ctx, id)
	if err != nil {
		return nil, err
	}
	link, err := s.exporter.SignedLink(job.ID, *job.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &dto.DownloadLinkResponse{URL: link.URL, ExpiresAt: link.ExpiresAt}, nil
}

// ResolveDownload validates token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	claims, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.finished(ctx, claims.ReportID)
	if err != nil {
		return nil, err
	}
	if *job.FilePath != claims.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.exporter.Open(claims.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(claims.Path),
		Format:    reportFormat(job),
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// CloudSave uploads a finished report to remote storage. Upstream failures
// are reported in the response body.
func (s *ReportService) CloudSave(ctx context.Context, id string) (*dto.CloudSaveResponse, error) {
	job, err := s.finished(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.exporter.SaveStoredReport(ctx, *job.FilePath, reportFormat(job)), nil
}

// RecoverPendingJobs replays queued or interrupted jobs after a restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListPending(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover pending report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if _, err := s.queue.Submit(jobs.Job{ID: job.ID, Type: string(job.Type), Attempt: job.Attempts}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
	if len(pending) > 0 {
		s.logger.Sugar().Infow("recovered report jobs", "count", len(pending))
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		for _, job := range expired {
			if job.FilePath == nil {
				continue
			}
			if err := s.exporter.Delete(*job.FilePath); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
				continue
			}
			empty := ""
			if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{FilePath: &empty, ResultURL: &empty}); err != nil {
				s.logger.Sugar().Warnw("cleanup update failed", "job_id", job.ID, "error", err)
			}
		}
		if len(expired) < 100 {
			break
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func (s *ReportService) load(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

func (s *ReportService) finished(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ReportStatusFinished || job.FilePath == nil || *job.FilePath == "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report not ready")
	}
	return job, nil
}

type reportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportWorker bridges queue jobs to ExportService and records every state
// transition on the job row.
type ReportWorker struct {
	repo       reportJobStore
	exporter   reportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker. maxRetries must match the queue's.
func NewReportWorker(repo reportJobStore, exporter reportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ReportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		return nil
	}
	processing := models.ReportStatusProcessing
	progress := 10
	attempts := job.Attempt + 1
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
		Attempts: &attempts,
	}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
			w.metrics.IncReportJob(string(record.Type), string(failed))
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	noError := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &result.URL,
		FilePath:     &result.RelativePath,
		ErrorMessage: &noError,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.metrics.IncReportJob(string(record.Type), string(finished))
	return nil
}
