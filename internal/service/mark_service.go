package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/grading"
)

type markRepository interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, mark *models.MarkRecord) error
	FindByID(ctx context.Context, id string) (*models.MarkRecord, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) (string, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.MarkView, error)
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type termLookup interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error
}

// MarkChangeHook is told about every mark write. MarkChanged runs inside the
// write's transaction and can abort it; MarkCommitted runs after commit.
type MarkChangeHook interface {
	MarkChanged(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	MarkCommitted(ctx context.Context, studentID string)
}

// MarkServiceDeps groups the collaborators of MarkService.
type MarkServiceDeps struct {
	Marks     markRepository
	Tx        txRunner
	Courses   courseLookup
	Terms     termLookup
	Users     userLookup
	Audit     auditLogger
	Hook      MarkChangeHook
	Table     *grading.Table
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// MarkService records marks and derives their grade fields.
type MarkService struct {
	marks     markRepository
	tx        txRunner
	courses   courseLookup
	terms     termLookup
	users     userLookup
	audit     auditLogger
	hook      MarkChangeHook
	table     *grading.Table
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs the service. The default grade table is used when
// none is supplied.
func NewMarkService(deps MarkServiceDeps) *MarkService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Table == nil {
		deps.Table = grading.DefaultTable
	}
	return &MarkService{
		marks:     deps.Marks,
		tx:        deps.Tx,
		courses:   deps.Courses,
		terms:     deps.Terms,
		users:     deps.Users,
		audit:     deps.Audit,
		hook:      deps.Hook,
		table:     deps.Table,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
	}
}

// Submit creates the student's mark for a course or replaces the existing one.
func (s *MarkService) Submit(ctx context.Context, req dto.MarkRequest, actor *models.JWTClaims) (*models.MarkRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	if err := requireStudent(ctx, s.users, req.StudentID); err != nil {
		return nil, err
	}
	course, err := s.course(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireTerm(ctx, req.TermID); err != nil {
		return nil, err
	}

	mark := &models.MarkRecord{
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		TermID:     req.TermID,
		RecordedBy: userIDPtr(actor),
	}
	s.derive(mark, *req.Mark, course.CreditUnits)
	if err := s.write(ctx, mark, actor); err != nil {
		return nil, err
	}
	return mark, nil
}

// Update changes the mark and optionally the term of an existing record.
func (s *MarkService) Update(ctx context.Context, id string, req dto.UpdateMarkRequest, actor *models.JWTClaims) (*models.MarkRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	mark, err := s.marks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}
	if req.TermID != nil && *req.TermID != mark.TermID {
		if err := s.requireTerm(ctx, *req.TermID); err != nil {
			return nil, err
		}
		mark.TermID = *req.TermID
	}
	course, err := s.course(ctx, mark.CourseID)
	if err != nil {
		return nil, err
	}
	mark.RecordedBy = userIDPtr(actor)
	s.derive(mark, *req.Mark, course.CreditUnits)
	if err := s.write(ctx, mark, actor); err != nil {
		return nil, err
	}
	return mark, nil
}

// Delete removes a mark and refreshes the student's GPA in the same
// transaction.
func (s *MarkService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	var studentID string
	err := s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		var err error
		studentID, err = s.marks.Delete(ctx, exec, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "mark not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete mark")
		}
		return s.refresh(ctx, exec, studentID)
	})
	if err != nil {
		return txError(err, "failed to delete mark")
	}
	s.metrics.IncMarkWrite("delete")
	s.emitAudit(ctx, actor, models.AuditActionMarkDelete, id, map[string]string{"student_id": studentID})
	s.committed(ctx, studentID)
	return nil
}

// ListByStudent returns a student's marks. Students may only read their own.
func (s *MarkService) ListByStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.MarkView, error) {
	if actor != nil && actor.Role == models.RoleStudent && actor.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only view their own marks")
	}
	marks, err := s.marks.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// GradeTable exposes the bands marks are graded against.
func (s *MarkService) GradeTable() []grading.Band {
	return s.table.Bands()
}

// derive grades the mark at the precision it is stored with.
func (s *MarkService) derive(mark *models.MarkRecord, raw float64, credits int) {
	raw = grading.RoundMark(raw)
	grade := s.table.Lookup(raw)
	mark.RawMark = raw
	mark.CreditUnits = credits
	mark.GradePoint = grade.Point
	mark.Letter = grade.Letter
	mark.Remark = grade.Remark
}

// write stores the mark and the student's refreshed GPA atomically.
func (s *MarkService) write(ctx context.Context, mark *models.MarkRecord, actor *models.JWTClaims) error {
	err := s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		if err := s.marks.Upsert(ctx, exec, mark); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save mark")
		}
		return s.refresh(ctx, exec, mark.StudentID)
	})
	if err != nil {
		return txError(err, "failed to save mark")
	}
	s.metrics.IncMarkWrite("upsert")
	s.emitAudit(ctx, actor, models.AuditActionMarkUpsert, mark.ID, mark)
	s.committed(ctx, mark.StudentID)
	return nil
}

func (s *MarkService) refresh(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if s.hook == nil {
		return nil
	}
	if err := s.hook.MarkChanged(ctx, exec, studentID); err != nil {
		s.logger.Error("gpa refresh failed, mark write rolled back", zap.String("student_id", studentID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "gpa recalculation failed, mark not saved")
	}
	return nil
}

func (s *MarkService) committed(ctx context.Context, studentID string) {
	if s.hook != nil {
		s.hook.MarkCommitted(ctx, studentID)
	}
}

// txError keeps application errors raised inside the transaction and wraps
// begin or commit failures.
func txError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *MarkService) course(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *MarkService) requireTerm(ctx context.Context, id string) error {
	if _, err := s.terms.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return nil
}

func (s *MarkService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	data, _ := json.Marshal(payload)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		Resource:   "mark",
		ResourceID: strPtr(resourceID),
		NewValues:  data,
	}); err != nil {
		s.logger.Warn("failed to record mark audit", zap.String("action", action), zap.Error(err))
	}
}
