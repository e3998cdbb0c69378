package dto

import (
	"time"

	"github.com/noah-isme/student-clubs-api/internal/models"
)

// ReportRequest captures POST /reports/clubs payload.
type ReportRequest struct {
	Type         models.ReportType   `json:"type"`
	Format       models.ReportFormat `json:"format"`
	UpcomingOnly bool                `json:"upcomingOnly"`
	RecentPosts  int                 `json:"recentPosts" validate:"gte=0,lte=50"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ReportType   `json:"type"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	Attempts   int                 `json:"attempts"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
}

// DownloadLinkResponse carries a signed download URL.
type DownloadLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CloudSaveResponse is the result of pushing a file to remote storage. A
// failed upload is reported here rather than as an error response.
type CloudSaveResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}
