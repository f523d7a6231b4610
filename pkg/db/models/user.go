package models

import "time"

// User represents the canonical identity entity.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;type:text;not null;uniqueIndex:idx_users_username"`
	Email        string    `gorm:"column:email;type:text;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Enabled      bool      `gorm:"column:enabled;not null;default:true"`
	Roles        []Role    `gorm:"many2many:user_roles;"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
