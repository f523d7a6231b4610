package users

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
)

// TokenRepository manages single-use password reset tokens.
type TokenRepository interface {
	WithTx(tx *gorm.DB) TokenRepository
	Create(ctx context.Context, token *models.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id int64) error
	// InvalidateForUser marks every unused token of the user as used.
	InvalidateForUser(ctx context.Context, userID int64) error
	// DeleteExpiredBefore removes tokens that are used or whose expiry is
	// older than cutoff. Returns the number of rows removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository builds a token repository tied to the provided GORM DB.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) WithTx(tx *gorm.DB) TokenRepository {
	if tx == nil {
		return r
	}
	return &tokenRepository{db: tx}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var row models.PasswordResetToken
	if err := r.db.WithContext(ctx).First(&row, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *tokenRepository) MarkUsed(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("id = ?", id).
		Update("used", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tokenRepository) InvalidateForUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("user_id = ? AND used = ?", userID, false).
		Update("used", true).Error
}

func (r *tokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("used = ? OR expires_at < ?", true, cutoff).
		Delete(&models.PasswordResetToken{})
	return result.RowsAffected, result.Error
}
