package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/models"
	"github.com/noah-isme/gema-chat-service/internal/repository"
)

// CourseService is plain per-request catalog glue; it never touches the
// realtime core.
type CourseService interface {
	Create(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	ListPublished(ctx context.Context, limit, offset int) ([]dto.CourseResponse, error)
	Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, id uint) error
}

type courseService struct {
	repo      repository.CourseRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseService constructs the catalog service.
func NewCourseService(repo repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	currency := strings.ToLower(strings.TrimSpace(payload.Currency))
	if currency == "" {
		currency = "usd"
	}

	model := models.Course{
		Title:       strings.TrimSpace(payload.Title),
		Description: payload.Description,
		PriceCents:  payload.PriceCents,
		Currency:    currency,
		Published:   payload.Published,
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(model), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) ListPublished(ctx context.Context, limit, offset int) ([]dto.CourseResponse, error) {
	courses, err := s.repo.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if payload.Title != nil {
		course.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		course.Description = *payload.Description
	}
	if payload.PriceCents != nil {
		course.PriceCents = *payload.PriceCents
	}
	if payload.Published != nil {
		course.Published = *payload.Published
	}

	if err := s.repo.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
