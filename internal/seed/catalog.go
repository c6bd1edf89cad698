package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/edukoala/internal/models"
)

// CatalogInvalidationPattern matches every cached catalog entry.
const CatalogInvalidationPattern = "catalog:*"

// Courses is the fixed catalog inserted into an empty database, in id order.
var Courses = []models.Course{
	{
		Title:       "Python for Beginners",
		Description: "Start your coding journey here. You will learn the basics of Python.",
		Price:       "$49",
		Duration:    "12 Hours",
		Level:       "Beginner",
		Instructor:  "Dr. Angela Yu",
	},
	{
		Title:       "Web Development Bootcamp",
		Description: "Become a full-stack developer. Covers HTML, CSS, JS.",
		Price:       "$89",
		Duration:    "45 Hours",
		Level:       "Intermediate",
		Instructor:  "Colt Steele",
	},
	{
		Title:       "Data Science 101",
		Description: "Analyze data using Pandas and NumPy.",
		Price:       "$99",
		Duration:    "20 Hours",
		Level:       "Advanced",
		Instructor:  "Jose Portilla",
	},
	{
		Title:       "Graphic Design Masterclass",
		Description: "Master Photoshop and Illustrator.",
		Price:       "$60",
		Duration:    "15 Hours",
		Level:       "All Levels",
		Instructor:  "Lindsay Marsh",
	},
}

type courseStore interface {
	Count(ctx context.Context) (int, error)
	InsertMany(ctx context.Context, courses []models.Course) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Catalog inserts the fixed catalog when the courses table is empty and
// reports whether rows were written. A nil cache is allowed.
func Catalog(ctx context.Context, store courseStore, cache cacheInvalidator, logger *zap.Logger) (bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	count, err := store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("seed catalog: %w", err)
	}
	if count > 0 {
		logger.Debug("catalog already seeded", zap.Int("courses", count))
		return false, nil
	}

	if err := store.InsertMany(ctx, Courses); err != nil {
		return false, fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info("catalog seeded", zap.Int("courses", len(Courses)))

	if cache != nil {
		if err := cache.DeleteByPattern(ctx, CatalogInvalidationPattern); err != nil {
			logger.Warn("failed to invalidate catalog cache", zap.Error(err))
		}
	}
	return true, nil
}
