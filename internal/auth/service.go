package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/account"
	"github.com/transit241/port-logistics/internal/core/common/validation"
	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/metrics"
	"github.com/transit241/port-logistics/internal/notification"
)

const (
	resetCodeDigits     = 6
	alertThreshold      = 5
	defaultResetCodeTTL = 15 * time.Minute
)

type RepositoryAPI interface {
	GetByEmail(ctx context.Context, email string) (*accountDatamodel.Account, error)
	GetByID(ctx context.Context, id string) (*accountDatamodel.Account, error)
	PhoneTaken(ctx context.Context, phone string) (bool, error)
	Create(ctx context.Context, acc *accountDatamodel.Account) error
	GetRoleByName(ctx context.Context, name string) (*accountDatamodel.Role, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
	PurgeExpiredResetCodes(ctx context.Context, now time.Time) (int64, error)
	AdminEmails(ctx context.Context) ([]string, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ServiceConfig carries the tunables and optional collaborators. Zero values
// fall back to defaults; a nil Failures disables lockout alerts.
type ServiceConfig struct {
	BCryptCost   int
	ResetCodeTTL time.Duration
	Failures     FailureTracker
	Metrics      *metrics.Metrics
}

type Service struct {
	repo      RepositoryAPI
	tx        Transactor
	tokens    TokenGenerator
	notifier  notification.Notifier
	publisher events.Publisher
	failures  FailureTracker
	metrics   *metrics.Metrics
	logger    *slog.Logger

	bcryptCost   int
	resetCodeTTL time.Duration
	now          func() time.Time
}

func NewService(
	repo RepositoryAPI,
	tx Transactor,
	tokens TokenGenerator,
	notifier notification.Notifier,
	publisher events.Publisher,
	cfg ServiceConfig,
	logger *slog.Logger,
) *Service {
	s := &Service{
		repo:         repo,
		tx:           tx,
		tokens:       tokens,
		notifier:     notifier,
		publisher:    publisher,
		failures:     cfg.Failures,
		metrics:      cfg.Metrics,
		logger:       logger,
		bcryptCost:   cfg.BCryptCost,
		resetCodeTTL: cfg.ResetCodeTTL,
		now:          time.Now,
	}
	if s.failures == nil {
		s.failures = noopFailureTracker{}
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.resetCodeTTL <= 0 {
		s.resetCodeTTL = defaultResetCodeTTL
	}
	return s
}

// Register creates a Client account and queues the welcome email in the
// same transaction.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*account.Account, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}
	if dto.Password != dto.PasswordConfirm {
		return nil, internal.ErrPasswordMismatch
	}

	email := normalizeEmail(dto.Email)
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, internal.ErrDuplicateEmail
	}

	var phone *string
	if p := strings.TrimSpace(dto.Phone); p != "" {
		taken, err := s.repo.PhoneTaken(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("lookup phone: %w", err)
		}
		if taken {
			return nil, internal.ErrDuplicatePhone
		}
		phone = &p
	}

	role, err := s.repo.GetRoleByName(ctx, account.RoleClient)
	if err != nil {
		return nil, fmt.Errorf("get client role: %w", err)
	}
	if role == nil {
		return nil, fmt.Errorf("role %q is not seeded", account.RoleClient)
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	row := &accountDatamodel.Account{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    strings.TrimSpace(dto.FirstName),
		LastName:     strings.TrimSpace(dto.LastName),
		Phone:        phone,
		RoleID:       &role.ID,
		PasswordHash: hash,
		IsActive:     true,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, row); err != nil {
			if database.IsDuplicateKey(err) {
				return duplicateAccountError(err)
			}
			return fmt.Errorf("create account: %w", err)
		}
		s.queue(ctx, notification.WelcomeEmail(row.Email, row.FirstName))
		return nil
	})
	if err != nil {
		return nil, err
	}
	row.Role = role

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeAccountRegistered, "account", row.ID, map[string]interface{}{
		"email": row.Email,
	}).WithActor(row.ID, row.Email))
	s.logger.Info("account registered", "user_id", row.ID)
	return account.FromDataModel(row), nil
}

// Authenticate checks the credentials and issues a token pair. Unknown
// emails, wrong passwords and inactive accounts all fail the same way.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if verr := validation.Struct(dto); verr != nil {
		return AuthTokens{}, verr
	}

	email := normalizeEmail(dto.Email)
	acc, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("lookup account: %w", err)
	}

	if acc == nil || !acc.IsActive || bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(dto.Password)) != nil {
		s.loginFailed(ctx, email, acc)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	tokens, err := s.issue(acc.ID, acc.Email)
	if err != nil {
		return AuthTokens{}, err
	}

	if err := s.repo.TouchLastLogin(ctx, acc.ID, s.now()); err != nil {
		s.logger.Warn("failed to stamp last login", "user_id", acc.ID, "error", err)
	}
	if err := s.failures.Reset(ctx, email); err != nil {
		s.logger.Warn("failed to reset login failures", "user_id", acc.ID, "error", err)
	}

	s.metrics.ObserveLogin(true)
	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeLoginSucceeded, "account", acc.ID, map[string]interface{}{
		"email": acc.Email,
	}).WithActor(acc.ID, acc.Email))
	return tokens, nil
}

func (s *Service) loginFailed(ctx context.Context, email string, acc *accountDatamodel.Account) {
	s.metrics.ObserveLogin(false)

	ev := events.NewLogisticsEvent(ctx, events.EventTypeLoginFailed, "account", "", map[string]interface{}{
		"email": email,
	})
	if acc != nil {
		ev.ResourceID = acc.ID
		ev.WithActor(acc.ID, acc.Email)
	}
	s.publish(ctx, ev)

	count, err := s.failures.RecordFailure(ctx, email)
	if err != nil {
		s.logger.Warn("failed to record login failure", "error", err)
		return
	}
	if count != alertThreshold || acc == nil {
		return
	}

	s.alertAdmins(ctx, acc, fmt.Sprintf("%d failed login attempts", count))
}

// alertAdmins queues a security alert to every administrator. Errors are
// logged; the caller has already decided the outcome of the request.
func (s *Service) alertAdmins(ctx context.Context, acc *accountDatamodel.Account, action string) {
	admins, err := s.repo.AdminEmails(ctx)
	if err != nil {
		s.logger.Error("failed to load admin emails", "error", err)
		return
	}
	ip := internal.OriginFromContext(ctx).IP
	for _, to := range admins {
		s.queue(ctx, notification.SecurityAlertEmail(to, acc.Email, acc.ID, action, ip))
	}
	s.logger.Warn("security alert raised", "user_id", acc.ID, "action", action, "recipients", len(admins))
}

func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	acc, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("lookup account: %w", err)
	}
	if acc == nil || !acc.IsActive {
		return AuthTokens{}, internal.ErrInvalidToken
	}
	return s.issue(acc.ID, acc.Email)
}

func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	return s.tokens.ValidateAccessToken(token)
}

// LoadPrincipal resolves an authenticated account and the permissions its
// role grants.
func (s *Service) LoadPrincipal(ctx context.Context, userID string) (*internal.User, error) {
	acc, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}
	if acc == nil || !acc.IsActive {
		return nil, internal.ErrInvalidToken
	}

	principal := &internal.User{
		ID:          acc.ID,
		Email:       acc.Email,
		IsStaff:     acc.IsStaff,
		IsSuperuser: acc.IsSuperuser,
		Permissions: []string{},
	}
	if acc.Role != nil {
		principal.RoleName = acc.Role.Name
		for _, p := range acc.Role.Permissions {
			principal.Permissions = append(principal.Permissions, p.Code)
		}
	}
	return principal, nil
}

// RequestPasswordReset stores a fresh code and mails it. The outcome is the
// same whether or not the email belongs to an account.
func (s *Service) RequestPasswordReset(ctx context.Context, dto ForgotPasswordDTO) error {
	if verr := validation.Struct(dto); verr != nil {
		return verr
	}

	acc, err := s.repo.GetByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if acc == nil || !acc.IsActive {
		s.logger.Debug("password reset requested for unknown account")
		return nil
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SetResetCode(ctx, acc.ID, code, s.now().Add(s.resetCodeTTL)); err != nil {
			return fmt.Errorf("store reset code: %w", err)
		}
		s.queue(ctx, notification.PasswordResetEmail(acc.Email, code, s.resetCodeTTL))
		return nil
	})
}

// ConfirmPasswordReset consumes the code and sets the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, dto ResetPasswordDTO) error {
	if verr := validation.Struct(dto); verr != nil {
		return verr
	}
	if dto.NewPassword != dto.PasswordConfirm {
		return internal.ErrPasswordMismatch
	}

	acc, err := s.repo.GetByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if acc == nil || acc.ResetCode == nil ||
		subtle.ConstantTimeCompare([]byte(*acc.ResetCode), []byte(dto.Code)) != 1 {
		return internal.ErrInvalidCode
	}
	if acc.ResetCodeExpiresAt == nil || s.now().After(*acc.ResetCodeExpiresAt) {
		return internal.ErrExpiredCode
	}

	hash, err := HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.repo.ResetPassword(ctx, acc.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypePasswordReset, "account", acc.ID, nil).
		WithActor(acc.ID, acc.Email))
	return nil
}

func (s *Service) PurgeExpiredResetCodes(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeExpiredResetCodes(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge reset codes: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired reset codes purged", "count", n)
	}
	return n, nil
}

func (s *Service) issue(userID, email string) (AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(userID, email)
	if err != nil {
		return AuthTokens{}, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID, email)
	if err != nil {
		return AuthTokens{}, err
	}
	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "event_type", ev.EventType(), "error", err)
	}
}

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func generateResetCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < resetCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%0*d", resetCodeDigits, n), nil
}

// queue never fails the caller. The outbox insert runs under its own
// savepoint, so the surrounding transaction still commits.
func (s *Service) queue(ctx context.Context, email notification.Email) {
	if err := s.notifier.Enqueue(ctx, email); err != nil {
		s.logger.Error("failed to queue notification", "kind", email.Kind, "error", err)
	}
}

// normalizeEmail folds the whole address; login identity is case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func duplicateAccountError(err error) error {
	if database.DuplicateColumn(err) == "phone" || strings.Contains(err.Error(), "phone") {
		return internal.ErrDuplicatePhone
	}
	return internal.ErrDuplicateEmail
}
