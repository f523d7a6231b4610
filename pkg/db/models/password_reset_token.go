package models

import "time"

// PasswordResetToken is a single-use credential for the reset flow.
type PasswordResetToken struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;index:idx_password_reset_tokens_user_id"`
	Token     string    `gorm:"column:token;type:text;not null;uniqueIndex:idx_password_reset_tokens_token"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	Used      bool      `gorm:"column:used;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
