package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
)

// fakeAuthRepo — репозиторий пользователей и сессий в памяти.
type fakeAuthRepo struct {
	users    map[uuid.UUID]*models.User
	sessions map[string]*models.Session
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		users:    make(map[uuid.UUID]*models.User),
		sessions: make(map[string]*models.Session),
	}
}

func (r *fakeAuthRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return apperror.NewConflict("пользователь уже существует")
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeAuthRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.ErrUserNotFound
}

func (r *fakeAuthRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.ErrUserNotFound
}

func (r *fakeAuthRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeAuthRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return apperror.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeAuthRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	u, ok := r.users[id]
	if !ok {
		return apperror.ErrUserNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (r *fakeAuthRepo) CreateSession(_ context.Context, session *models.Session) error {
	copied := *session
	r.sessions[session.RefreshToken] = &copied
	return nil
}

func (r *fakeAuthRepo) GetSessionByToken(_ context.Context, refreshToken string) (*models.Session, error) {
	s, ok := r.sessions[refreshToken]
	if !ok || !time.Now().Before(s.ExpiresAt) {
		return nil, apperror.ErrUnauthorized
	}
	copied := *s
	return &copied, nil
}

func (r *fakeAuthRepo) DeleteSession(_ context.Context, refreshToken string) error {
	delete(r.sessions, refreshToken)
	return nil
}

func (r *fakeAuthRepo) DeleteUserSessions(_ context.Context, userID uuid.UUID) error {
	for token, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, token)
		}
	}
	return nil
}

func (r *fakeAuthRepo) ListSessions(_ context.Context, userID uuid.UUID) ([]models.Session, error) {
	out := []models.Session{}
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeAuthRepo) DeleteSessionByID(_ context.Context, sessionID, userID uuid.UUID) error {
	for token, s := range r.sessions {
		if s.ID == sessionID && s.UserID == userID {
			delete(r.sessions, token)
			return nil
		}
	}
	return apperror.ErrUnauthorized
}

func (r *fakeAuthRepo) DeleteAllSessionsExcept(_ context.Context, userID uuid.UUID, exceptRefreshToken string) error {
	for token, s := range r.sessions {
		if s.UserID == userID && token != exceptRefreshToken {
			delete(r.sessions, token)
		}
	}
	return nil
}

func newAuthService(repo *fakeAuthRepo) *AuthService {
	tokens := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	return NewAuthService(repo, tokens)
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := newAuthService(repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Author@Example.com",
		Password: "Str0ng!Pass",
		Username: "author",
		FullName: "Автор Прозаиков",
	}, SessionMeta{UserAgent: "test", IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if result.User.Email != "author@example.com" {
		t.Fatalf("email должен быть приведён к нижнему регистру: %q", result.User.Email)
	}
	if result.User.Role != models.RoleReader {
		t.Fatalf("новый пользователь получает роль reader, получено %q", result.User.Role)
	}
	if result.User.PasswordHash == "Str0ng!Pass" {
		t.Fatal("пароль не должен храниться в открытом виде")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("Str0ng!Pass")); err != nil {
		t.Fatalf("хеш пароля не совпадает: %v", err)
	}
	if result.TokenPair == nil || result.TokenPair.RefreshToken == "" {
		t.Fatal("регистрация должна выдавать пару токенов")
	}
	if _, ok := repo.sessions[result.TokenPair.RefreshToken]; !ok {
		t.Fatal("refresh токен должен быть сохранён как сессия")
	}
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(newFakeAuthRepo())

	in := RegisterInput{Email: "author@example.com", Password: "Str0ng!Pass", Username: "author"}
	if _, err := svc.Register(context.Background(), in, SessionMeta{}); err != nil {
		t.Fatalf("первая регистрация: %v", err)
	}

	in.Username = "another"
	if _, err := svc.Register(context.Background(), in, SessionMeta{}); !apperror.IsValidation(err) {
		t.Fatalf("повторная регистрация должна быть отклонена, получено %v", err)
	}
}

func TestAuthServiceRegisterWeakPassword(t *testing.T) {
	svc := newAuthService(newFakeAuthRepo())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "author@example.com",
		Password: "password",
		Username: "author",
	}, SessionMeta{})
	if !apperror.IsValidation(err) {
		t.Fatalf("слабый пароль должен быть отклонён, получено %v", err)
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := newAuthService(repo)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "author@example.com",
		Password: "Str0ng!Pass",
		Username: "author",
	}, SessionMeta{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "author@example.com",
		Password: "Str0ng!Pass",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if repo.users[result.User.ID].LastLoginAt == nil {
		t.Fatal("login должен обновлять last_login_at")
	}

	// Неверный пароль и незнакомый email дают одну и ту же ошибку.
	_, errWrongPass := svc.Login(context.Background(), LoginInput{Email: "author@example.com", Password: "Wrong!Pass1"}, SessionMeta{})
	_, errNoUser := svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "Str0ng!Pass"}, SessionMeta{})
	if errWrongPass == nil || errNoUser == nil || errWrongPass.Error() != errNoUser.Error() {
		t.Fatalf("ошибки должны совпадать: %v против %v", errWrongPass, errNoUser)
	}
}

func TestAuthServiceLoginInactive(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := newAuthService(repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "author@example.com",
		Password: "Str0ng!Pass",
		Username: "author",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	repo.users[result.User.ID].IsActive = false

	if _, err := svc.Login(context.Background(), LoginInput{
		Email:    "author@example.com",
		Password: "Str0ng!Pass",
	}, SessionMeta{}); !apperror.IsForbidden(err) {
		t.Fatalf("вход заблокированного пользователя должен быть отклонён, получено %v", err)
	}
}

func TestAuthServiceRefreshRotatesSession(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := newAuthService(repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "author@example.com",
		Password: "Str0ng!Pass",
		Username: "author",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	oldToken := result.TokenPair.RefreshToken

	pair, err := svc.Refresh(context.Background(), oldToken, SessionMeta{})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.RefreshToken == oldToken {
		t.Fatal("refresh должен выдавать новый токен")
	}
	if _, ok := repo.sessions[oldToken]; ok {
		t.Fatal("старая сессия должна быть удалена")
	}
	if _, ok := repo.sessions[pair.RefreshToken]; !ok {
		t.Fatal("новая сессия должна быть сохранена")
	}

	// Погашенный токен не принимается повторно.
	if _, err := svc.Refresh(context.Background(), oldToken, SessionMeta{}); err == nil {
		t.Fatal("отозванный refresh токен должен быть отклонён")
	}
}

func TestAuthServiceChangePasswordRevokesSessions(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := newAuthService(repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "author@example.com",
		Password: "Str0ng!Pass",
		Username: "author",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), result.User.ID, "Str0ng!Pass", "Newer$tr0ng1"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Fatal("после смены пароля сессии должны быть отозваны")
	}

	if err := svc.ChangePassword(context.Background(), result.User.ID, "Str0ng!Pass", "Another$tr0ng1"); err == nil {
		t.Fatal("старый пароль больше не должен приниматься")
	}
}
