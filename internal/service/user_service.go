package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
	"github.com/writervault/backend/internal/repository"
	"github.com/writervault/backend/internal/repository/common"
	"github.com/writervault/backend/internal/validation"
)

// UserService отвечает за профили и административные операции над пользователями.
type UserService struct {
	repo  *repository.UserRepository
	stats *repository.StatsRepository
}

// UpdateProfileInput содержит частичное обновление профиля.
type UpdateProfileInput struct {
	Username *string
	FullName *string
}

// NewUserService создаёт сервис пользователей.
func NewUserService(repo *repository.UserRepository, stats *repository.StatsRepository) *UserService {
	return &UserService{repo: repo, stats: stats}
}

// GetByID возвращает пользователя.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile меняет собственный профиль пользователя.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
		user.Username = username
	}
	if in.FullName != nil {
		fullName := strings.TrimSpace(*in.FullName)
		if err := validation.ValidateFullName(fullName); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
		user.FullName = fullName
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperror.NewConflict("имя пользователя уже занято")
		}
		return nil, err
	}
	return user, nil
}

// List возвращает страницу пользователей для админки.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// SetActive блокирует или разблокирует пользователя. При блокировке
// отзываются все его сессии.
func (s *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		return s.repo.DeleteUserSessions(ctx, id)
	}
	return nil
}

// ContentStats возвращает сводные счётчики по контенту для админки.
func (s *UserService) ContentStats(ctx context.Context) (*models.ContentStats, error) {
	return s.stats.Overview(ctx)
}

// SetRole меняет роль пользователя.
func (s *UserService) SetRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error) {
	switch role {
	case models.RoleReader, models.RoleAuthor, models.RoleAdmin:
	default:
		return nil, apperror.NewValidation("недопустимая роль")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
