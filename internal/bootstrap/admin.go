package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/internal/users"
	"github.com/stocktrail/stocktrail-backend/pkg/config"
	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
	"github.com/stocktrail/stocktrail-backend/pkg/security"
)

// EnsureAdmin creates the default administrator account when none exists.
// It runs at startup before the API accepts traffic and is idempotent: a
// user with the configured username or email short-circuits the create.
func EnsureAdmin(ctx context.Context, repo users.Repository, cfg config.AdminConfig, pwCfg config.PasswordConfig, logg *logger.Logger) error {
	if !cfg.BootstrapEnabled {
		if logg != nil {
			logg.Info(ctx, "admin bootstrap disabled")
		}
		return nil
	}
	if cfg.Username == "" || cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("admin bootstrap requires username, email and password")
	}

	if _, err := repo.GetByUsername(ctx, cfg.Username); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checking admin username: %w", err)
	}
	if _, err := repo.GetByEmail(ctx, cfg.Email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checking admin email: %w", err)
	}

	roles, err := repo.GetRolesByNames(ctx, []enums.Role{enums.RoleAdmin})
	if err != nil {
		return fmt.Errorf("loading admin role: %w", err)
	}
	if len(roles) != 1 {
		return fmt.Errorf("admin role is not seeded")
	}

	hash, err := security.HashPassword(cfg.Password, pwCfg)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	admin := &models.User{
		Username:     cfg.Username,
		Email:        cfg.Email,
		PasswordHash: hash,
		Enabled:      true,
		Roles:        roles,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithUserID(ctx, cfg.Username), "default admin created")
	}
	return nil
}
