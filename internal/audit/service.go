package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	pkgerrors "github.com/stocktrail/stocktrail-backend/pkg/errors"
	"github.com/stocktrail/stocktrail-backend/pkg/pagination"
)

// Service records and queries the audit trail.
type Service interface {
	// WithTx returns a service whose writes run on the provided transaction.
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordInput) (*models.AuditEvent, error)
	Get(ctx context.Context, id int64) (*models.AuditEvent, error)
	List(ctx context.Context, page pagination.Request) (pagination.Page[models.AuditEvent], error)
	ListByEntity(ctx context.Context, entityType enums.EntityType, entityID int64, page pagination.Request) (pagination.Page[models.AuditEvent], error)
	ListByEntityType(ctx context.Context, entityType enums.EntityType, page pagination.Request) (pagination.Page[models.AuditEvent], error)
	ListByEventType(ctx context.Context, eventType enums.AuditEventType, page pagination.Request) (pagination.Page[models.AuditEvent], error)
	ListByUserID(ctx context.Context, userID string, page pagination.Request) (pagination.Page[models.AuditEvent], error)
}

// RecordInput captures the immutable data an audit event requires. Actor
// and Details are optional; an empty actor is stored as NULL.
type RecordInput struct {
	EventType  enums.AuditEventType
	EntityType enums.EntityType
	EntityID   int64
	Actor      string
	Details    string
}

type service struct {
	repo Repository
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.AuditEvent, error) {
	if !input.EventType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid event type %q", input.EventType))
	}
	if input.EntityType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity type is required")
	}
	if input.EntityID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id must be positive")
	}

	event := &models.AuditEvent{
		EventType:  input.EventType,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
	}
	if actor := strings.TrimSpace(input.Actor); actor != "" {
		event.UserID = &actor
	}
	if input.Details != "" {
		details := input.Details
		event.Details = &details
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording audit event")
	}
	return event, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.AuditEvent, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "audit event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading audit event")
	}
	return event, nil
}

func (s *service) List(ctx context.Context, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	return s.query(page, func(validated pagination.Request) ([]models.AuditEvent, int64, error) {
		return s.repo.List(ctx, validated)
	})
}

func (s *service) ListByEntity(ctx context.Context, entityType enums.EntityType, entityID int64, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	if entityType == "" {
		return pagination.Page[models.AuditEvent]{}, pkgerrors.New(pkgerrors.CodeValidation, "entity type is required")
	}
	return s.query(page, func(validated pagination.Request) ([]models.AuditEvent, int64, error) {
		return s.repo.ListByEntity(ctx, entityType, entityID, validated)
	})
}

func (s *service) ListByEntityType(ctx context.Context, entityType enums.EntityType, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	if entityType == "" {
		return pagination.Page[models.AuditEvent]{}, pkgerrors.New(pkgerrors.CodeValidation, "entity type is required")
	}
	return s.query(page, func(validated pagination.Request) ([]models.AuditEvent, int64, error) {
		return s.repo.ListByEntityType(ctx, entityType, validated)
	})
}

func (s *service) ListByEventType(ctx context.Context, eventType enums.AuditEventType, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	if !eventType.IsValid() {
		return pagination.Page[models.AuditEvent]{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid event type %q", eventType))
	}
	return s.query(page, func(validated pagination.Request) ([]models.AuditEvent, int64, error) {
		return s.repo.ListByEventType(ctx, eventType, validated)
	})
}

func (s *service) ListByUserID(ctx context.Context, userID string, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	if strings.TrimSpace(userID) == "" {
		return pagination.Page[models.AuditEvent]{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.query(page, func(validated pagination.Request) ([]models.AuditEvent, int64, error) {
		return s.repo.ListByUserID(ctx, userID, validated)
	})
}

func (s *service) query(page pagination.Request, fetch func(pagination.Request) ([]models.AuditEvent, int64, error)) (pagination.Page[models.AuditEvent], error) {
	validated, err := page.Validate(SortFields)
	if err != nil {
		return pagination.Page[models.AuditEvent]{}, err
	}

	events, total, err := fetch(validated)
	if err != nil {
		return pagination.Page[models.AuditEvent]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "querying audit events")
	}
	return pagination.NewPage(events, validated, total), nil
}
