// Package router binds HTTP handlers to the API route table.
package router

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/student-clubs-api/internal/handler"
	"github.com/noah-isme/student-clubs-api/internal/middleware"
	"github.com/noah-isme/student-clubs-api/internal/models"
)

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Handlers groups every HTTP handler mounted by Register.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Clubs         *handler.ClubHandler
	Events        *handler.EventHandler
	Polls         *handler.PollHandler
	Courses       *handler.CourseHandler
	Terms         *handler.TermHandler
	Marks         *handler.MarkHandler
	Points        *handler.PointsHandler
	Dashboard     *handler.DashboardHandler
	Configuration *handler.ConfigurationHandler
	Reports       *handler.ReportHandler
	Metrics       *handler.MetricsHandler
}

// Options tunes route registration.
type Options struct {
	APIPrefix   string
	EnableDocs  bool
	Auth        tokenValidator
	AuditLogger auditRecorder
}

// Register mounts operational endpoints at the root and the API under
// opts.APIPrefix. Handlers left nil are skipped.
func Register(r *gin.Engine, h Handlers, opts Options) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if opts.EnableDocs {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin)
	lecturer := middleware.RequireRoles(models.RoleLecturer)
	student := middleware.RequireRoles(models.RoleStudent)
	staffOrSelf := middleware.RBAC(string(models.RoleLecturer), string(models.RoleAdmin), middleware.Self)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(opts.AuditLogger, action, resource)
	}

	if h.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}
	if h.Reports != nil {
		api.GET("/reports/download/:token", h.Reports.Download)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Auth))

	if h.Auth != nil {
		secured.GET("/auth/me", h.Auth.Me)
	}

	if h.Users != nil {
		users := secured.Group("/users", admin)
		users.GET("", h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.PUT("/:id", h.Users.Update)
		users.DELETE("/:id", h.Users.Delete)
	}

	if h.Clubs != nil {
		clubs := secured.Group("/clubs")
		clubs.GET("", h.Clubs.List)
		clubs.GET("/:id", h.Clubs.Get)
		clubs.POST("", staff, audit(models.AuditActionClubCreate, "club"), h.Clubs.Create)
		clubs.POST("/:id/membership", student, h.Clubs.ToggleMembership)
		clubs.GET("/:id/posts", h.Clubs.ListPosts)
		clubs.POST("/:id/posts", h.Clubs.CreatePost)
		secured.DELETE("/posts/:id", staff, audit(models.AuditActionPostDelete, "club_post"), h.Clubs.DeletePost)
	}

	if h.Events != nil {
		events := secured.Group("/events")
		events.GET("", h.Events.List)
		events.POST("", staff, h.Events.Create)
		events.POST("/:id/rsvp", h.Events.ToggleRSVP)
	}

	if h.Polls != nil {
		polls := secured.Group("/polls")
		polls.GET("", h.Polls.List)
		polls.POST("", lecturer, h.Polls.Create)
		polls.GET("/:id", h.Polls.Get)
		polls.POST("/:id/vote", student, h.Polls.Vote)
	}

	if h.Courses != nil {
		courses := secured.Group("/courses")
		courses.GET("", h.Courses.List)
		courses.GET("/:id", h.Courses.Get)
		courses.POST("", staff, h.Courses.Create)
	}
	if h.Terms != nil {
		terms := secured.Group("/terms")
		terms.GET("", h.Terms.List)
		terms.POST("", staff, h.Terms.Create)
	}

	if h.Marks != nil {
		secured.GET("/grades/table", h.Marks.GradeTable)
		marks := secured.Group("/marks", lecturer)
		marks.POST("", h.Marks.Submit)
		marks.PUT("/:id", h.Marks.Update)
		marks.DELETE("/:id", h.Marks.Delete)

		secured.GET("/students/:id/marks", staffOrSelf, h.Marks.StudentMarks)
		secured.GET("/students/:id/gpa", staffOrSelf, h.Marks.GPA)
		secured.POST("/students/:id/gpa/recalculate", staff, h.Marks.RecalculateGPA)
	}

	if h.Points != nil {
		secured.POST("/points", lecturer, h.Points.Award)
		secured.GET("/students/:id/points", staffOrSelf, h.Points.Summary)
	}

	if h.Dashboard != nil {
		secured.GET("/dashboard/student", student, h.Dashboard.Student)
	}

	if h.Configuration != nil {
		secured.GET("/settings", h.Configuration.Get)
		secured.PUT("/settings", admin, h.Configuration.Update)
	}

	if h.Reports != nil {
		reports := secured.Group("/reports")
		reports.GET("/engagement", staff, h.Reports.Engagement)
		reports.POST("/clubs", admin, h.Reports.SubmitClubs)
		reports.GET("/:id/status", admin, h.Reports.Status)
		reports.GET("/:id/download", admin, h.Reports.DownloadLink)
		reports.POST("/:id/cloud", admin, audit(models.AuditActionReportExport, "report"), h.Reports.CloudSave)

		secured.GET("/exports/all", staff, audit(models.AuditActionReportExport, "all_data"), h.Reports.ExportAll)

		me := secured.Group("/me/reports", student)
		me.GET("", h.Reports.SavedStudentReports)
		me.GET("/:kind", h.Reports.StudentReport)
		me.POST("/:kind/cloud", h.Reports.SaveStudentReport)
	}
}
