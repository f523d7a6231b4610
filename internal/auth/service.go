package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/internal/users"
	pkgAuth "github.com/stocktrail/stocktrail-backend/pkg/auth"
	"github.com/stocktrail/stocktrail-backend/pkg/config"
	"github.com/stocktrail/stocktrail-backend/pkg/db"
	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	pkgerrors "github.com/stocktrail/stocktrail-backend/pkg/errors"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
	"github.com/stocktrail/stocktrail-backend/pkg/mailer"
	"github.com/stocktrail/stocktrail-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidResetTokenMessage  = "invalid or expired reset token"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Me(ctx context.Context, userID int64) (*users.UserDTO, error)
	ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	AdminResetPassword(ctx context.Context, req AdminResetPasswordRequest) error
}

type service struct {
	db       *db.Client
	users    users.Repository
	tokens   users.TokenRepository
	mail     mailer.Mailer
	logg     *logger.Logger
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	resetCfg config.PasswordResetConfig
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             *db.Client
	UserRepo       users.Repository
	TokenRepo      users.TokenRepository
	Mailer         mailer.Mailer
	Logger         *logger.Logger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	ResetConfig    config.PasswordResetConfig
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.TokenRepo == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	return &service{
		db:       params.DB,
		users:    params.UserRepo,
		tokens:   params.TokenRepo,
		mail:     params.Mailer,
		logg:     params.Logger,
		jwtCfg:   params.JWTConfig,
		pwCfg:    params.PasswordConfig,
		resetCfg: params.ResetConfig,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := validateNewPassword(req.Password); err != nil {
		return nil, err
	}

	roleNames, err := resolveRegisterRoles(req.Roles)
	if err != nil {
		return nil, err
	}

	roles, err := s.users.GetRolesByNames(ctx, roleNames)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading roles")
	}
	if len(roles) != len(roleNames) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "role table is not seeded")
	}

	hash, err := security.HashPassword(req.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Enabled:      true,
		Roles:        roles,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case db.IsUniqueViolation(err, "idx_users_username"):
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username already exists")
		case db.IsUniqueViolation(err, "idx_users_email"):
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already exists")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
		}
	}
	return users.FromModel(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	roles := make([]enums.Role, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.Name)
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    roles,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: token,
		User:        users.FromModel(user),
	}, nil
}

func (s *service) Me(ctx context.Context, userID int64) (*users.UserDTO, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return users.FromModel(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	if err := validateNewPassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect")
	}

	return s.setPassword(ctx, user.ID, req.NewPassword)
}

// ForgotPassword never reveals whether the email belongs to an account.
// Failures after the lookup are logged, not surfaced.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if !user.Enabled {
		return nil
	}

	token := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(s.resetCfg.TokenTTL),
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txTokens := s.tokens.WithTx(tx)
		if err := txTokens.InvalidateForUser(ctx, user.ID); err != nil {
			return err
		}
		return txTokens.Create(ctx, token)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing reset token")
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: "Password reset",
		Body: fmt.Sprintf(
			"A password reset was requested for your account.\n\nReset link: %s?token=%s\n\nThe link expires in %s. If you did not request this, ignore this message.",
			strings.TrimRight(s.resetCfg.FrontendURL, "/"), token.Token, s.resetCfg.TokenTTL,
		),
	}
	if err := s.mail.Send(ctx, msg); err != nil && s.logg != nil {
		s.logg.Error(ctx, "sending password reset mail", err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validateNewPassword(req.NewPassword); err != nil {
		return err
	}
	tokenValue := strings.TrimSpace(req.Token)
	if tokenValue == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	token, err := s.tokens.GetByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidResetTokenMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading reset token")
	}
	if token.Used || time.Now().UTC().After(token.ExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetTokenMessage)
	}

	hash, err := security.HashPassword(req.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).UpdatePassword(ctx, token.UserID, hash); err != nil {
			return err
		}
		txTokens := s.tokens.WithTx(tx)
		if err := txTokens.MarkUsed(ctx, token.ID); err != nil {
			return err
		}
		return txTokens.InvalidateForUser(ctx, token.UserID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resetting password")
	}
	return nil
}

func (s *service) AdminResetPassword(ctx context.Context, req AdminResetPasswordRequest) error {
	if err := validateNewPassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	return s.setPassword(ctx, user.ID, req.NewPassword)
}

// setPassword writes the new hash and revokes outstanding reset tokens.
func (s *service) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := security.HashPassword(password, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		return s.tokens.WithTx(tx).InvalidateForUser(ctx, userID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating password")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// resolveRegisterRoles maps the requested role names, defaulting to USER.
// ADMIN is never assignable through registration.
func resolveRegisterRoles(requested []string) ([]enums.Role, error) {
	if len(requested) == 0 {
		return []enums.Role{enums.RoleUser}, nil
	}

	seen := make(map[enums.Role]struct{}, len(requested))
	roles := make([]enums.Role, 0, len(requested))
	for _, name := range requested {
		role := enums.Role(strings.ToUpper(strings.TrimSpace(name)))
		if !role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", name))
		}
		if !role.IsSelfAssignable() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("role %s cannot be assigned at registration", role))
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles, nil
}

func validateNewPassword(password string) error {
	if len(password) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	return nil
}
