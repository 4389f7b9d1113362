package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/jwt"
	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/lib/password"
	"kansetsu/internal/metrics"
	"kansetsu/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminExist         = errors.New("admin already exist")
)

const minPasswordLen = 6

type Auth struct {
	log           *slog.Logger
	adminSaver    AdminSaver
	adminProvider AdminProvider
	tokens        *jwt.Manager
}

type AdminSaver interface {
	SaveAdmin(ctx context.Context, username string, passHash []byte) (int64, error)
}

type AdminProvider interface {
	AdminByUsername(ctx context.Context, username string) (models.AdminUser, error)
	CountAdmins(ctx context.Context) (int, error)
}

func New(log *slog.Logger, adminSaver AdminSaver, adminProvider AdminProvider, tokens *jwt.Manager) *Auth {
	return &Auth{
		log:           log,
		adminSaver:    adminSaver,
		adminProvider: adminProvider,
		tokens:        tokens,
	}
}

// Login проверяет пароль администратора и выдает токен сессии
func (a *Auth) Login(ctx context.Context, username, pass string) (string, models.AdminUser, error) {
	const op = "auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("attempting to login admin")

	admin, err := a.adminProvider.AdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrAdminNotFound) {
			log.Warn("admin not found", sl.Err(err))
			metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()

			return "", models.AdminUser{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get admin", sl.Err(err))
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()

		return "", models.AdminUser{}, fmt.Errorf("%s: %w", op, err)
	}

	if !password.Verify(pass, admin.PasswordHash) {
		log.Info("invalid credentials")
		metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()

		return "", models.AdminUser{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := a.tokens.NewToken(admin.ID, admin.Username)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()

		return "", models.AdminUser{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	log.Info("admin logged in successfully")

	return token, admin, nil
}

// ValidateToken returns the claims of a live token or jwt.ErrInvalidToken.
func (a *Auth) ValidateToken(token string) (*jwt.Claims, error) {
	const op = "auth.ValidateToken"

	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

func (a *Auth) RegisterAdmin(ctx context.Context, username, pass string) (int64, error) {
	const op = "auth.RegisterAdmin"

	username = strings.TrimSpace(username)

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("register admin")

	if username == "" {
		return 0, fmt.Errorf("%s: username is required: %w", op, models.ErrValidation)
	}
	if len(pass) < minPasswordLen {
		return 0, fmt.Errorf("%s: password must be at least %d characters: %w", op, minPasswordLen, models.ErrValidation)
	}

	passHash, err := password.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.adminSaver.SaveAdmin(ctx, username, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrAdminExists) {
			log.Warn("admin already exist", sl.Err(err))

			return 0, fmt.Errorf("%s: %w", op, ErrAdminExist)
		}

		log.Error("failed to save admin", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin registered", slog.Int64("id", id))

	return id, nil
}

// EnsureDefaultAdmin creates the bootstrap account when no admin exists yet.
func (a *Auth) EnsureDefaultAdmin(ctx context.Context, username, pass string) (bool, error) {
	const op = "auth.EnsureDefaultAdmin"

	log := a.log.With(slog.String("op", op))

	count, err := a.adminProvider.CountAdmins(ctx)
	if err != nil {
		log.Error("failed to count admins", sl.Err(err))

		return false, fmt.Errorf("%s: %w", op, err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := a.RegisterAdmin(ctx, username, pass); err != nil {
		if errors.Is(err, ErrAdminExist) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	log.Warn("default admin account created, change its password",
		slog.String("username", username),
	)

	return true, nil
}
