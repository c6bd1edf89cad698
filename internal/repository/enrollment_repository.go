package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edukoala/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll records the (user, course) pair unless it already exists. The
// returned flag is false when the pair was already present.
func (r *EnrollmentRepository) Enroll(ctx context.Context, userID, courseID int64) (bool, error) {
	query := r.db.Rebind(`INSERT INTO enrollments (user_id, course_id, enrolled_at) VALUES (?, ?, ?)
ON CONFLICT (user_id, course_id) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, query, userID, courseID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("create enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create enrollment rows: %w", err)
	}
	return affected > 0, nil
}

// Drop removes the (user, course) pair. Removing a missing pair is not an error.
func (r *EnrollmentRepository) Drop(ctx context.Context, userID, courseID int64) (bool, error) {
	query := r.db.Rebind(`DELETE FROM enrollments WHERE user_id = ? AND course_id = ?`)
	res, err := r.db.ExecContext(ctx, query, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment rows: %w", err)
	}
	return affected > 0, nil
}

// ListCoursesByUser returns the user's enrolled courses in enrollment order.
func (r *EnrollmentRepository) ListCoursesByUser(ctx context.Context, userID int64) ([]models.EnrolledCourse, error) {
	query := r.db.Rebind(`SELECT c.id, c.title, c.description, c.price, c.duration, c.level, c.instructor,
e.id AS enrollment_id, e.enrolled_at
FROM enrollments e
JOIN courses c ON c.id = e.course_id
WHERE e.user_id = ?
ORDER BY e.id`)
	courses := make([]models.EnrolledCourse, 0)
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return courses, nil
}

// Exists reports whether the user is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID int64) (bool, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM enrollments WHERE user_id = ? AND course_id = ?`)
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return count > 0, nil
}
