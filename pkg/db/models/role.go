package models

import "github.com/stocktrail/stocktrail-backend/pkg/enums"

// Role is a named authorization role. The set is seeded by migration.
type Role struct {
	ID   int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name enums.Role `gorm:"column:name;type:text;not null;uniqueIndex:idx_roles_name"`
}
