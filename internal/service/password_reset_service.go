package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/writervault/backend/internal/goroutine"
	"github.com/writervault/backend/internal/logger"
	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
	"github.com/writervault/backend/internal/validation"
)

// resetTokenBytes — длина случайной части токена до кодирования.
const resetTokenBytes = 32

// PasswordResetRepository описывает зависимости сервиса сброса пароля.
type PasswordResetRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ListUsersWithActiveResetTokens(ctx context.Context) ([]models.User, error)
	ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, newPasswordHash string) (bool, error)
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
}

// ResetMailer отправляет письмо со ссылкой на сброс пароля.
type ResetMailer interface {
	SendPasswordReset(email, username, resetLink string) error
}

// PasswordResetService управляет жизненным циклом токена сброса пароля.
//
// Токен выдаётся в открытом виде только в письме; в базе хранится его
// bcrypt-хеш вместе со сроком действия. У пользователя действует не более
// одного токена: повторный запрос перезаписывает предыдущий.
type PasswordResetService struct {
	repo            PasswordResetRepository
	mailer          ResetMailer
	tokenTTL        time.Duration
	frontendBaseURL string
}

// NewPasswordResetService создаёт сервис сброса пароля.
func NewPasswordResetService(repo PasswordResetRepository, mailer ResetMailer, tokenTTL time.Duration, frontendBaseURL string) *PasswordResetService {
	return &PasswordResetService{
		repo:            repo,
		mailer:          mailer,
		tokenTTL:        tokenTTL,
		frontendBaseURL: frontendBaseURL,
	}
}

// RequestReset запускает процедуру сброса. Ответ одинаков для существующих
// и несуществующих адресов, чтобы по нему нельзя было перебирать базу.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return apperror.NewValidation(err.Error())
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	tokenHash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("password reset: не удалось захешировать токен: %w", err)
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, string(tokenHash), expiresAt); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.frontendBaseURL, token)

	// Письмо уходит в фоне: клиенту не нужно ждать SMTP,
	// а сбой доставки не должен превращаться в 500.
	addr, username := user.Email, user.Username
	goroutine.SafeGo(func() {
		if err := s.mailer.SendPasswordReset(addr, username, resetLink); err != nil {
			logger.WithComponent("password_reset").WithError(err).
				Error("не удалось отправить письмо со сбросом пароля")
		}
	})

	return nil
}

// VerifyToken проверяет, действителен ли токен, не гася его.
func (s *PasswordResetService) VerifyToken(ctx context.Context, token string) error {
	_, err := s.findTokenOwner(ctx, token)
	return err
}

// ResetPassword устанавливает новый пароль по одноразовому токену.
// Токен гасится атомарно: из двух конкурентных запросов с одним токеном
// успешен будет ровно один.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.NewValidation(err.Error())
	}

	user, err := s.findTokenOwner(ctx, token)
	if err != nil {
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("password reset: не удалось захешировать пароль: %w", err)
	}

	consumed, err := s.repo.ConsumeResetToken(ctx, user.ID, *user.ResetTokenHash, string(passHash))
	if err != nil {
		return err
	}
	if !consumed {
		// Токен успели погасить между проверкой и обновлением.
		return apperror.ErrInvalidResetToken
	}

	// После смены пароля все выданные refresh токены недействительны.
	if err := s.repo.DeleteUserSessions(ctx, user.ID); err != nil {
		logger.WithComponent("password_reset").WithField("user_id", user.ID).
			WithError(err).Warn("не удалось отозвать сессии после сброса пароля")
	}

	return nil
}

// findTokenOwner ищет владельца токена перебором активных хешей.
// Токен хранится только как bcrypt-хеш, поэтому прямой выборки по нему нет;
// кандидатов мало — лишь пользователи с незавершённым сбросом.
func (s *PasswordResetService) findTokenOwner(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperror.ErrInvalidResetToken
	}

	users, err := s.repo.ListUsersWithActiveResetTokens(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range users {
		u := &users[i]
		if !u.HasActiveResetToken(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*u.ResetTokenHash), []byte(token)) == nil {
			return u, nil
		}
	}

	// Какая именно проверка не прошла — не раскрывается.
	return nil, apperror.ErrInvalidResetToken
}

// generateResetToken выпускает криптослучайный токен в кодировке base64url.
func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
