package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/pkg/engagement"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/export"
	"github.com/noah-isme/student-clubs-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// RemoteStorage uploads files to object storage and lists what was saved.
type RemoteStorage interface {
	Upload(ctx context.Context, bucket, objectPath, contentType string, data []byte) (string, error)
	List(ctx context.Context, bucket, prefix string) ([]storage.RemoteObject, error)
}

type activitySource interface {
	ClubCounts(ctx context.Context) ([]engagement.Counts, error)
}

type clubLister interface {
	List(ctx context.Context, filter models.ClubFilter) ([]models.ClubSummary, int, error)
}

type eventFinder interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.EventView, error)
}

type pollLister interface {
	List(ctx context.Context, clubID string, limit int) ([]models.PollSummary, error)
}

type recentPostLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.ClubPost, error)
}

type markLister interface {
	ListAll(ctx context.Context) ([]models.MarkView, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.MarkView, error)
}

type engagementRanker interface {
	Ranked(ctx context.Context) ([]engagement.Snapshot, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderDocument(doc export.Document) ([]byte, error)
}

// StudentReportKind names a self-service student CSV.
type StudentReportKind string

const (
	StudentReportClubs  StudentReportKind = "clubs"
	StudentReportEvents StudentReportKind = "events"
	StudentReportGrades StudentReportKind = "grades"
)

// Valid reports whether k is a known kind.
func (k StudentReportKind) Valid() bool {
	return k == StudentReportClubs || k == StudentReportEvents || k == StudentReportGrades
}

const (
	reportSectionLimit  = 10
	defaultRecentPosts  = 10
	clubDescriptionCut  = 80
	contentTypeCSV      = "text/csv"
	contentTypePDF      = "application/pdf"
	defaultReportFooter = "End of Report - Generated by School Clubs MS"
)

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix     string
	ResultTTL     time.Duration
	ReportsBucket string
	StudentBucket string
	Footer        string
}

// ExportSources groups the read models exports are built from.
type ExportSources struct {
	Activity   activitySource
	Clubs      clubLister
	Events     eventFinder
	Polls      pollLister
	Posts      recentPostLister
	Marks      markLister
	Engagement engagementRanker
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// FileExport is a rendered file returned inline.
type FileExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	src     ExportSources
	storage fileStorage
	remote  RemoteStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService. remote may be nil when cloud
// storage is disabled.
func NewExportService(src ExportSources, files fileStorage, remote RemoteStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.ReportsBucket == "" {
		cfg.ReportsBucket = "reports"
	}
	if cfg.StudentBucket == "" {
		cfg.StudentBucket = "student-reports"
	}
	if cfg.Footer == "" {
		cfg.Footer = defaultReportFooter
	}
	return &ExportService{
		src:     src,
		storage: files,
		remote:  remote,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate renders the report a job describes and stores it on disk.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	var (
		payload []byte
		err     error
	)
	switch job.Type {
	case models.ReportTypeClubsActivity:
		var doc export.Document
		if doc, err = s.ClubsActivityDocument(ctx, job.Params); err == nil {
			payload, err = s.pdf.RenderDocument(doc)
		}
	case models.ReportTypeEngagement:
		var data export.Dataset
		if data, err = s.EngagementDataset(ctx); err == nil {
			payload, err = s.render(data, "Club Engagement", job.Params.Format)
		}
	case models.ReportTypeAllData:
		payload, err = s.renderAllData(ctx, job.Params)
	default:
		err = fmt.Errorf("unsupported report type %s", job.Type)
	}
	if err != nil {
		return nil, err
	}

	stem := string(job.Type)
	if job.Type == models.ReportTypeClubsActivity {
		stem = "clubs"
	}
	relPath, err := s.storage.Save(job.ID+"/"+s.buildFilename(stem, reportFormat(job)), payload)
	if err != nil {
		return nil, err
	}
	link, err := s.SignedLink(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        link.Token,
		URL:          link.URL,
		Format:       reportFormat(job),
		ExpiresAt:    link.ExpiresAt,
	}, nil
}

// SignedDownload is a freshly signed download link.
type SignedDownload struct {
	Token     string
	URL       string
	ExpiresAt time.Time
}

// SignedLink signs a download token for a stored file.
func (s *ExportService) SignedLink(reportID, relPath string) (*SignedDownload, error) {
	token, expiresAt, err := s.signer.Generate(reportID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &SignedDownload{
		Token:     token,
		URL:       fmt.Sprintf("%s/reports/download/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// ClubsActivityDocument gathers the multi-section clubs overview.
func (s *ExportService) ClubsActivityDocument(ctx context.Context, params models.ReportJobParams) (export.Document, error) {
	recent := params.RecentPosts
	if recent <= 0 {
		recent = defaultRecentPosts
	}
	var (
		counts []engagement.Counts
		clubs  []models.ClubSummary
		events []models.EventView
		polls  []models.PollSummary
		posts  []models.ClubPost
	)
	now := s.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.src.Activity.ClubCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		clubs, _, err = s.src.Clubs.List(gctx, models.ClubFilter{PageSize: 100})
		return err
	})
	g.Go(func() (err error) {
		events, err = s.src.Events.List(gctx, models.EventFilter{Limit: reportSectionLimit, UpcomingAt: &now})
		return err
	})
	g.Go(func() (err error) {
		polls, err = s.src.Polls.List(gctx, "", reportSectionLimit)
		return err
	})
	g.Go(func() (err error) {
		posts, err = s.src.Posts.ListRecent(gctx, recent)
		return err
	})
	if err := g.Wait(); err != nil {
		return export.Document{}, err
	}

	details := make(map[string]models.ClubSummary, len(clubs))
	for _, club := range clubs {
		details[club.ID] = club
	}

	overview := export.Section{Heading: "1. Clubs Overview", Empty: "No clubs found in the system."}
	for _, c := range counts {
		club := details[c.ClubID]
		meeting := "Not set"
		if club.MeetingTime != nil && *club.MeetingTime != "" {
			meeting = *club.MeetingTime
		}
		overview.Lines = append(overview.Lines,
			"- "+c.ClubName,
			"  Description: "+cut(club.Description, clubDescriptionCut),
			"  Meeting Time: "+meeting,
			fmt.Sprintf("  Members: %d, Events: %d, Posts: %d, Polls: %d", c.Members, c.Events, c.Posts, c.Polls),
		)
	}

	upcoming := export.Section{Heading: "2. Upcoming Events", Empty: "No upcoming events found."}
	for _, e := range events {
		club := "General"
		if e.ClubName != nil {
			club = *e.ClubName
		}
		upcoming.Lines = append(upcoming.Lines,
			"- "+e.Name,
			fmt.Sprintf("  Club: %s | Date: %s | Attendees: %d", club, e.Date.Format("2006-01-02"), e.AttendeeCount),
		)
	}

	pollSection := export.Section{Heading: "3. Active Polls", Empty: "No active polls found."}
	for _, p := range polls {
		pollSection.Lines = append(pollSection.Lines,
			"- "+p.Question,
			fmt.Sprintf("  Club: %s | Total Votes: %d", p.ClubName, p.TotalVotes),
		)
	}

	postSection := export.Section{Heading: "4. Recent Club Posts", Empty: "No recent posts found."}
	for _, p := range posts {
		postSection.Lines = append(postSection.Lines,
			"- "+p.Title,
			fmt.Sprintf("  Club: %s | Author: %s | %s", p.ClubName, p.AuthorName, p.CreatedAt.Format("2006-01-02")),
		)
	}

	return export.Document{
		Title:       "School Clubs Management System Report",
		GeneratedAt: now,
		Sections:    []export.Section{overview, upcoming, pollSection, postSection},
		Footer:      s.cfg.Footer,
	}, nil
}

// EngagementDataset tabulates the ranked engagement snapshots.
func (s *ExportService) EngagementDataset(ctx context.Context) (export.Dataset, error) {
	ranked, err := s.src.Engagement.Ranked(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{Headers: []string{"Club", "Members", "Events", "Posts", "Polls", "Score", "Engagement (%)"}}
	for _, snap := range ranked {
		data.Append(
			snap.ClubName,
			strconv.Itoa(snap.Members),
			strconv.Itoa(snap.Events),
			strconv.Itoa(snap.Posts),
			strconv.Itoa(snap.Polls),
			fmt.Sprintf("%.2f", snap.RawScore),
			fmt.Sprintf("%.2f", snap.Percentage),
		)
	}
	return data, nil
}

// AllData renders clubs, events and marks in one file for staff.
func (s *ExportService) AllData(ctx context.Context, format models.ReportFormat, upcomingOnly bool) (*FileExport, error) {
	if format == "" {
		format = models.ReportFormatCSV
	}
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	payload, err := s.renderAllData(ctx, models.ReportJobParams{Format: format, UpcomingOnly: upcomingOnly})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export data")
	}
	return &FileExport{
		Filename:    s.buildFilename("all_data", format),
		ContentType: contentTypeFor(format),
		Data:        payload,
	}, nil
}

// StudentReport renders one of the student's own CSVs.
func (s *ExportService) StudentReport(ctx context.Context, studentID string, kind StudentReportKind) (*FileExport, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid report type")
	}
	var (
		data export.Dataset
		err  error
	)
	switch kind {
	case StudentReportClubs:
		data, err = s.studentClubs(ctx, studentID)
	case StudentReportEvents:
		data, err = s.studentEvents(ctx, studentID)
	case StudentReportGrades:
		data, err = s.studentGrades(ctx, studentID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build report")
	}
	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &FileExport{
		Filename:    fmt.Sprintf("student_%s_%s.csv", kind, s.now().UTC().Format("20060102_150405")),
		ContentType: contentTypeCSV,
		Data:        payload,
	}, nil
}

// SaveStudentReport uploads a student CSV to student_{id}/ in the student
// bucket. Upstream failures are reported in the response, not as errors.
func (s *ExportService) SaveStudentReport(ctx context.Context, studentID string, kind StudentReportKind) (*dto.CloudSaveResponse, error) {
	file, err := s.StudentReport(ctx, studentID, kind)
	if err != nil {
		return nil, err
	}
	objectPath := fmt.Sprintf("student_%s/%s", studentID, file.Filename)
	return s.upload(ctx, s.cfg.StudentBucket, objectPath, file), nil
}

// ListStudentReports lists what a student saved remotely. An unavailable
// store yields an empty list.
func (s *ExportService) ListStudentReports(ctx context.Context, studentID string) []storage.RemoteObject {
	if s.remote == nil {
		return []storage.RemoteObject{}
	}
	objects, err := s.remote.List(ctx, s.cfg.StudentBucket, fmt.Sprintf("student_%s", studentID))
	if err != nil {
		s.logger.Warn("listing saved reports failed", zap.String("student_id", studentID), zap.Error(err))
		return []storage.RemoteObject{}
	}
	return objects
}

// SaveStoredReport uploads a generated report file to the reports bucket.
func (s *ExportService) SaveStoredReport(ctx context.Context, relPath string, format models.ReportFormat) *dto.CloudSaveResponse {
	data, err := s.storage.Read(relPath)
	if err != nil {
		return &dto.CloudSaveResponse{Success: false, Filename: relPath, Error: "report file is no longer available"}
	}
	return s.upload(ctx, s.cfg.ReportsBucket, relPath, &FileExport{Filename: relPath, ContentType: contentTypeFor(format), Data: data})
}

func (s *ExportService) upload(ctx context.Context, bucket, objectPath string, file *FileExport) *dto.CloudSaveResponse {
	resp := &dto.CloudSaveResponse{Filename: file.Filename}
	if s.remote == nil {
		s.metrics.IncUpload(bucket, false)
		resp.Error = storage.ErrRemoteDisabled.Error()
		return resp
	}
	url, err := s.remote.Upload(ctx, bucket, objectPath, file.ContentType, file.Data)
	s.metrics.IncUpload(bucket, err == nil)
	if err != nil {
		s.logger.Warn("cloud upload failed", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		resp.Error = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			resp.Error = "remote storage timed out"
		}
		return resp
	}
	resp.Success = true
	resp.URL = url
	return resp
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadClaims, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) renderAllData(ctx context.Context, params models.ReportJobParams) ([]byte, error) {
	eventFilter := models.EventFilter{Limit: 200}
	if params.UpcomingOnly {
		now := s.now().UTC()
		eventFilter.UpcomingAt = &now
	}
	var (
		counts []engagement.Counts
		events []models.EventView
		marks  []models.MarkView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.src.Activity.ClubCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		events, err = s.src.Events.List(gctx, eventFilter)
		return err
	})
	g.Go(func() (err error) {
		marks, err = s.src.Marks.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	clubs := export.Dataset{Headers: []string{"Club", "Members", "Events", "Posts", "Polls"}}
	for _, c := range counts {
		clubs.Append(c.ClubName, strconv.Itoa(c.Members), strconv.Itoa(c.Events), strconv.Itoa(c.Posts), strconv.Itoa(c.Polls))
	}
	eventData := export.Dataset{Headers: []string{"Event", "Club", "Date", "Location", "Attendees"}}
	for _, e := range events {
		eventData.Append(e.Name, derefOr(e.ClubName, "General"), e.Date.Format("2006-01-02"), e.Location, strconv.Itoa(e.AttendeeCount))
	}
	markData := export.Dataset{Headers: []string{"Student ID", "Course", "Term", "Mark", "Grade", "Point", "Credits"}}
	for _, m := range marks {
		markData.Append(m.StudentID, m.CourseCode, m.TermName, formatMark(m.RawMark), m.Letter, fmt.Sprintf("%.1f", m.GradePoint), strconv.Itoa(m.CreditUnits))
	}

	if params.Format == models.ReportFormatPDF {
		return s.pdf.RenderDocument(export.Document{
			Title:       "All Data Export",
			GeneratedAt: s.now().UTC(),
			Sections: []export.Section{
				{Heading: "Clubs", Table: clubs, Empty: "No clubs."},
				{Heading: "Events", Table: eventData, Empty: "No events."},
				{Heading: "Marks", Table: markData, Empty: "No marks."},
			},
			Footer: s.cfg.Footer,
		})
	}

	var out []byte
	for i, part := range []struct {
		label string
		data  export.Dataset
	}{{"CLUBS", clubs}, {"EVENTS", eventData}, {"MARKS", markData}} {
		rendered, err := s.csv.Render(part.data)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, fmt.Sprintf("=== %s ===\n", part.label)...)
		out = append(out, rendered...)
	}
	return out, nil
}

func (s *ExportService) studentClubs(ctx context.Context, studentID string) (export.Dataset, error) {
	clubs, _, err := s.src.Clubs.List(ctx, models.ClubFilter{MemberID: studentID, PageSize: 100})
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{Headers: []string{"Club Name", "Members Count", "Status"}}
	for _, c := range clubs {
		data.Append(c.Name, strconv.Itoa(c.MemberCount), "Active")
	}
	return data, nil
}

func (s *ExportService) studentEvents(ctx context.Context, studentID string) (export.Dataset, error) {
	events, err := s.src.Events.List(ctx, models.EventFilter{AttendeeID: studentID, ViewerID: studentID, Limit: 200})
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{Headers: []string{"Event Name", "Club", "Date", "Location"}}
	for _, e := range events {
		data.Append(e.Name, derefOr(e.ClubName, "General"), e.Date.Format("2006-01-02"), e.Location)
	}
	return data, nil
}

func (s *ExportService) studentGrades(ctx context.Context, studentID string) (export.Dataset, error) {
	marks, err := s.src.Marks.ListByStudent(ctx, studentID)
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{Headers: []string{"Course Name", "Marks", "Grade", "Semester"}}
	if len(marks) == 0 {
		data.Append("No courses found for this student", "", "", "")
	}
	for _, m := range marks {
		data.Append(m.CourseName, formatMark(m.RawMark), m.Letter, m.TermName)
	}
	return data, nil
}

func (s *ExportService) render(data export.Dataset, title string, format models.ReportFormat) ([]byte, error) {
	switch format {
	case models.ReportFormatCSV, "":
		return s.csv.Render(data)
	case models.ReportFormatPDF:
		return s.pdf.Render(data, title)
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

func (s *ExportService) buildFilename(kind string, format models.ReportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_report_%s.%s", sanitizeFilename(kind), timestamp, format)
}

func reportFormat(job *models.ReportJob) models.ReportFormat {
	if job.Type == models.ReportTypeClubsActivity {
		return models.ReportFormatPDF
	}
	if job.Params.Format == "" {
		return models.ReportFormatCSV
	}
	return job.Params.Format
}

func contentTypeFor(format models.ReportFormat) string {
	if format == models.ReportFormatPDF {
		return contentTypePDF
	}
	return contentTypeCSV
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(strings.ToLower(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func formatMark(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func derefOr(ptr *string, fallback string) string {
	if ptr == nil || *ptr == "" {
		return fallback
	}
	return *ptr
}

func cut(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
