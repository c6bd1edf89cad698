package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edukoala/internal/models"
)

const courseColumns = "id, title, description, price, duration, level, instructor"

// CourseRepository handles persistence for catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses ordered by id. A non-empty search keeps only courses
// whose title contains it, ignoring case; LIKE wildcards in the search are
// matched literally.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses"
	var args []interface{}
	if filter.Search != "" {
		query += ` WHERE LOWER(title) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}
	query += " ORDER BY id"

	courses := make([]models.Course, 0)
	if err := r.db.SelectContext(ctx, &courses, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := r.db.Rebind("SELECT " + courseColumns + " FROM courses WHERE id = ?")
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// Count returns the number of catalog rows.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}

// InsertMany stores the given courses in a single transaction.
func (r *CourseRepository) InsertMany(ctx context.Context, courses []models.Course) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin course insert: %w", err)
	}

	query := r.db.Rebind(`INSERT INTO courses (title, description, price, duration, level, instructor) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, c := range courses {
		if _, err := tx.ExecContext(ctx, query, c.Title, c.Description, c.Price, c.Duration, c.Level, c.Instructor); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert course %q: %w", c.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit course insert: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
