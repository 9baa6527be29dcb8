package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amertacoffee/amerta-backend/internal/users"
	pkgAuth "github.com/amertacoffee/amerta-backend/pkg/auth"
	"github.com/amertacoffee/amerta-backend/pkg/auth/session"
	"github.com/amertacoffee/amerta-backend/pkg/config"
	dbpkg "github.com/amertacoffee/amerta-backend/pkg/db"
	"github.com/amertacoffee/amerta-backend/pkg/db/models"
	"github.com/amertacoffee/amerta-backend/pkg/enums"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
	"github.com/amertacoffee/amerta-backend/pkg/outbox"
	"github.com/amertacoffee/amerta-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "amerta",
		ExpirationMinutes: 30,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func buildTestService(t *testing.T, conn *gorm.DB, repo userRepository, sessionMgr sessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:             dbpkg.NewWithConn(conn),
		UserRepo:       repo,
		SessionManager: sessionMgr,
		Outbox:         outbox.NewService(outbox.NewRepository(conn), nil),
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	refreshToken string
	rotateErr    error
	newAccessID  string
	revoked      []string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return s.newAccessID, "rotated-" + provided, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func TestRegisterCreatesUserAndEmitsEvent(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := buildTestService(t, conn, users.NewRepository(conn), &stubSessionManager{refreshToken: "refresh-token"})

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Putri Ayu",
		Email:    "Putri@Example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if resp.User.Email != "putri@example.com" {
		t.Fatalf("email must be normalized, got %q", resp.User.Email)
	}
	if resp.User.Role != enums.RoleCustomer {
		t.Fatalf("role = %s", resp.User.Role)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected a full token pair")
	}

	var stored models.User
	if err := conn.First(&stored, "email = ?", "putri@example.com").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.PasswordHash == "s3cret-pass" {
		t.Fatalf("password must not be stored in plain text")
	}

	var events int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected 1 outbox event, got %d", events)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := buildTestService(t, conn, users.NewRepository(conn), &stubSessionManager{refreshToken: "refresh-token"})

	req := RegisterRequest{Name: "Putri Ayu", Email: "putri@example.com", Password: "s3cret-pass"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), req)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := buildTestService(t, conn, users.NewRepository(conn), &stubSessionManager{refreshToken: "refresh-token"})

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "missing email", req: RegisterRequest{Name: "A", Password: "s3cret-pass"}},
		{name: "missing name", req: RegisterRequest{Email: "a@example.com", Password: "s3cret-pass"}},
		{name: "short password", req: RegisterRequest{Name: "A", Email: "a@example.com", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoginMintsCustomerClaims(t *testing.T) {
	t.Parallel()

	password := "customer-secret"
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Putri Ayu",
		Email:        "putri@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.RoleCustomer,
		IsActive:     true,
	}
	repo := stubUserRepo{user: user}
	svc := buildTestService(t, newTestDB(t), repo, &stubSessionManager{refreshToken: "refresh-token"})

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Putri@example.com", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("claims user = %s", claims.UserID)
	}
	if claims.Role != enums.RoleCustomer {
		t.Fatalf("claims role = %s", claims.Role)
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("refresh token = %q", resp.RefreshToken)
	}
	if user.LastLoginAt == nil {
		t.Fatalf("last login must be recorded")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	password := "customer-secret"
	active := &models.User{
		ID:           uuid.New(),
		Email:        "putri@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.RoleCustomer,
		IsActive:     true,
	}
	inactive := &models.User{
		ID:           uuid.New(),
		Email:        "dormant@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.RoleCustomer,
		IsActive:     false,
	}

	conn := newTestDB(t)
	cases := []struct {
		name string
		repo stubUserRepo
		req  LoginRequest
	}{
		{name: "wrong password", repo: stubUserRepo{user: active}, req: LoginRequest{Email: active.Email, Password: "nope"}},
		{name: "unknown email", repo: stubUserRepo{}, req: LoginRequest{Email: "ghost@example.com", Password: password}},
		{name: "inactive user", repo: stubUserRepo{user: inactive}, req: LoginRequest{Email: inactive.Email, Password: password}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := buildTestService(t, conn, tc.repo, &stubSessionManager{refreshToken: "refresh-token"})
			_, err := svc.Login(context.Background(), tc.req)
			if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	password := "customer-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "putri@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.RoleCustomer,
		IsActive:     true,
	}
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token", newAccessID: uuid.NewString()}
	svc := buildTestService(t, newTestDB(t), stubUserRepo{user: user}, sessionMgr)

	login, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken != "rotated-refresh-token" {
		t.Fatalf("refresh token = %q", refreshed.RefreshToken)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse new token: %v", err)
	}
	if claims.ID != sessionMgr.newAccessID {
		t.Fatalf("new token must carry the rotated access id, got %q", claims.ID)
	}
}

func TestRefreshRejectsInvalidToken(t *testing.T) {
	t.Parallel()

	password := "customer-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "putri@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.RoleCustomer,
		IsActive:     true,
	}
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token", rotateErr: session.ErrInvalidRefreshToken}
	svc := buildTestService(t, newTestDB(t), stubUserRepo{user: user}, sessionMgr)

	login, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "stolen",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "refresh-token",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	t.Parallel()

	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc := buildTestService(t, newTestDB(t), stubUserRepo{}, sessionMgr)

	if err := svc.Logout(context.Background(), "access-id"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessionMgr.revoked) != 1 || sessionMgr.revoked[0] != "access-id" {
		t.Fatalf("revoked = %v", sessionMgr.revoked)
	}

	err := svc.Logout(context.Background(), "  ")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for blank access id, got %v", err)
	}
}
