package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/edukoala/internal/models"
	appErrors "github.com/noah-isme/edukoala/pkg/errors"
	"github.com/noah-isme/edukoala/pkg/export"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, userID, courseID int64) (bool, error)
	Drop(ctx context.Context, userID, courseID int64) (bool, error)
	ListCoursesByUser(ctx context.Context, userID int64) ([]models.EnrolledCourse, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// EnrollmentService manages the courses a user has taken.
type EnrollmentService struct {
	repo    enrollmentRepository
	courses courseReader
	logger  *zap.Logger
	metrics *MetricsService
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, logger *zap.Logger, metrics *MetricsService) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, logger: logger, metrics: metrics}
}

// Enroll adds the course to the user's enrollments. Enrolling twice leaves a
// single enrollment; Changed reports whether this call created it.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID int64) (*models.EnrollmentResult, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordEnrollmentEvent("enroll", "not_found")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		s.metrics.RecordEnrollmentEvent("enroll", "error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	created, err := s.repo.Enroll(ctx, userID, courseID)
	if err != nil {
		s.metrics.RecordEnrollmentEvent("enroll", "error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}

	result := "existing"
	if created {
		result = "created"
		s.logger.Info("user enrolled", zap.Int64("user_id", userID), zap.Int64("course_id", courseID))
	}
	s.metrics.RecordEnrollmentEvent("enroll", result)
	return &models.EnrollmentResult{CourseID: courseID, Changed: created}, nil
}

// Drop removes the course from the user's enrollments. Dropping a course the
// user never took is a no-op.
func (s *EnrollmentService) Drop(ctx context.Context, userID, courseID int64) (*models.EnrollmentResult, error) {
	removed, err := s.repo.Drop(ctx, userID, courseID)
	if err != nil {
		s.metrics.RecordEnrollmentEvent("drop", "error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop course")
	}

	result := "absent"
	if removed {
		result = "removed"
		s.logger.Info("user dropped course", zap.Int64("user_id", userID), zap.Int64("course_id", courseID))
	}
	s.metrics.RecordEnrollmentEvent("drop", result)
	return &models.EnrollmentResult{CourseID: courseID, Changed: removed}, nil
}

// MyCourses lists the user's courses in the order they were taken.
func (s *EnrollmentService) MyCourses(ctx context.Context, userID int64) ([]models.EnrolledCourse, error) {
	courses, err := s.repo.ListCoursesByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled courses")
	}
	return courses, nil
}

var exportHeaders = []string{"Course", "Instructor", "Level", "Duration", "Price", "Enrolled At"}

// Export renders the user's courses as a CSV or PDF download.
func (s *EnrollmentService) Export(ctx context.Context, userID int64, username, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}

	courses, err := s.MyCourses(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, map[string]string{
			"Course":      c.Title,
			"Instructor":  c.Instructor,
			"Level":       c.Level,
			"Duration":    c.Duration,
			"Price":       c.Price,
			"Enrolled At": c.EnrolledAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	body, err := export.Render(format, export.Dataset{
		Title:   fmt.Sprintf("Courses of %s", username),
		Headers: exportHeaders,
		Rows:    rows,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    "my_courses_" + strconv.FormatInt(userID, 10) + "." + string(format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}
