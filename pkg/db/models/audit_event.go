package models

import (
	"time"

	"github.com/stocktrail/stocktrail-backend/pkg/enums"
)

// AuditEvent records one immutable audit trail entry. Rows are only ever
// inserted; there is no update or delete path.
type AuditEvent struct {
	ID         int64                `gorm:"column:id;primaryKey;autoIncrement"`
	EventType  enums.AuditEventType `gorm:"column:event_type;type:text;not null;index:idx_audit_events_event_type"`
	EntityType enums.EntityType     `gorm:"column:entity_type;type:text;not null;index:idx_audit_events_entity,priority:1"`
	EntityID   int64                `gorm:"column:entity_id;not null;index:idx_audit_events_entity,priority:2"`
	UserID     *string              `gorm:"column:user_id;type:text;index:idx_audit_events_user_id"`
	Details    *string              `gorm:"column:details;type:text"`
	Timestamp  time.Time            `gorm:"column:timestamp;not null;autoCreateTime;index:idx_audit_events_timestamp"`
}
