package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/edukoala/internal/models"
	appErrors "github.com/noah-isme/edukoala/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// CatalogService exposes read access to the course catalog.
type CatalogService struct {
	repo   courseRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewCatalogService constructs the catalog service. cache may be nil.
func NewCatalogService(repo courseRepository, cache *CacheService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, logger: logger}
}

// List returns the catalog, optionally narrowed to titles containing query.
func (s *CatalogService) List(ctx context.Context, query string) ([]models.Course, error) {
	key := catalogListKey(query)
	var cached []models.Course
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	courses, err := s.repo.List(ctx, models.CourseFilter{Search: query})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	_ = s.cache.Set(ctx, key, courses, 0)
	return courses, nil
}

// Get returns a single course.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Course, error) {
	key := catalogCourseKey(id)
	var cached models.Course
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	_ = s.cache.Set(ctx, key, course, 0)
	return course, nil
}

func catalogListKey(query string) string {
	return "catalog:list:" + strings.ToLower(query)
}

func catalogCourseKey(id int64) string {
	return fmt.Sprintf("catalog:course:%d", id)
}
