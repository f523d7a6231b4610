package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	"github.com/stocktrail/stocktrail-backend/pkg/pagination"
)

// SortFields maps the public audit sort keys to their columns.
var SortFields = map[string]string{
	"id":         "id",
	"eventType":  "event_type",
	"entityType": "entity_type",
	"entityId":   "entity_id",
	"userId":     "user_id",
	"timestamp":  "timestamp",
}

// Repository manages persistence for audit events. The table is append
// only: there is deliberately no update or delete method.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.AuditEvent) error
	GetByID(ctx context.Context, id int64) (*models.AuditEvent, error)
	List(ctx context.Context, page pagination.Request) ([]models.AuditEvent, int64, error)
	ListByEntity(ctx context.Context, entityType enums.EntityType, entityID int64, page pagination.Request) ([]models.AuditEvent, int64, error)
	ListByEntityType(ctx context.Context, entityType enums.EntityType, page pagination.Request) ([]models.AuditEvent, int64, error)
	ListByEventType(ctx context.Context, eventType enums.AuditEventType, page pagination.Request) ([]models.AuditEvent, int64, error)
	ListByUserID(ctx context.Context, userID string, page pagination.Request) ([]models.AuditEvent, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*models.AuditEvent, error) {
	var event models.AuditEvent
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) List(ctx context.Context, page pagination.Request) ([]models.AuditEvent, int64, error) {
	return r.paged(ctx, r.db.WithContext(ctx).Model(&models.AuditEvent{}), page)
}

func (r *repository) ListByEntity(ctx context.Context, entityType enums.EntityType, entityID int64, page pagination.Request) ([]models.AuditEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEvent{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	return r.paged(ctx, query, page)
}

func (r *repository) ListByEntityType(ctx context.Context, entityType enums.EntityType, page pagination.Request) ([]models.AuditEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEvent{}).
		Where("entity_type = ?", entityType)
	return r.paged(ctx, query, page)
}

func (r *repository) ListByEventType(ctx context.Context, eventType enums.AuditEventType, page pagination.Request) ([]models.AuditEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEvent{}).
		Where("event_type = ?", eventType)
	return r.paged(ctx, query, page)
}

func (r *repository) ListByUserID(ctx context.Context, userID string, page pagination.Request) ([]models.AuditEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEvent{}).
		Where("user_id = ?", userID)
	return r.paged(ctx, query, page)
}

func (r *repository) paged(ctx context.Context, query *gorm.DB, page pagination.Request) ([]models.AuditEvent, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.AuditEvent
	if err := query.
		Order(page.OrderClause("timestamp")).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
