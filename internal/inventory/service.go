package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/internal/audit"
	"github.com/stocktrail/stocktrail-backend/pkg/cache"
	"github.com/stocktrail/stocktrail-backend/pkg/db"
	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	pkgerrors "github.com/stocktrail/stocktrail-backend/pkg/errors"
	"github.com/stocktrail/stocktrail-backend/pkg/pagination"
)

// Service coordinates inventory mutations with the audit trail. Every
// mutation and its audit record commit in a single transaction; the read
// cache is flushed only after the commit succeeds.
type Service interface {
	Get(ctx context.Context, id int64) (*models.InventoryItem, error)
	GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error)
	List(ctx context.Context, page pagination.Request) (pagination.Page[models.InventoryItem], error)
	ListByLocation(ctx context.Context, location string, page pagination.Request) (pagination.Page[models.InventoryItem], error)
	SearchBySKU(ctx context.Context, fragment string, page pagination.Request) (pagination.Page[models.InventoryItem], error)
	SearchByName(ctx context.Context, fragment string, page pagination.Request) (pagination.Page[models.InventoryItem], error)
	LocationSummary(ctx context.Context) ([]LocationSummary, error)
	Create(ctx context.Context, input ItemInput, actor string) (*models.InventoryItem, error)
	CreateBatch(ctx context.Context, inputs []ItemInput, actor string) ([]models.InventoryItem, error)
	Update(ctx context.Context, id int64, input ItemInput, actor string) (*models.InventoryItem, error)
	Delete(ctx context.Context, id int64, actor string) error
}

// ItemCache is the read cache shared by Get and GetBySKU.
type ItemCache = cache.Cache[string, models.InventoryItem]

type service struct {
	db    *db.Client
	repo  Repository
	audit audit.Service
	cache *ItemCache
}

// NewService wires the inventory coordinator. The cache may be nil, in
// which case every read goes to the database.
func NewService(client *db.Client, repo Repository, auditSvc audit.Service, itemCache *ItemCache) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	return &service{db: client, repo: repo, audit: auditSvc, cache: itemCache}, nil
}

func idKey(id int64) string    { return fmt.Sprintf("id:%d", id) }
func skuKey(sku string) string { return "sku:" + sku }

func (s *service) Get(ctx context.Context, id int64) (*models.InventoryItem, error) {
	if s.cache != nil {
		if item, ok := s.cache.Get(idKey(id)); ok {
			return &item, nil
		}
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
	}

	if s.cache != nil {
		s.cache.Set(idKey(id), *item)
	}
	return item, nil
}

func (s *service) GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}

	if s.cache != nil {
		if item, ok := s.cache.Get(skuKey(sku)); ok {
			return &item, nil
		}
	}

	item, err := s.repo.GetBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
	}

	if s.cache != nil {
		s.cache.Set(skuKey(sku), *item)
	}
	return item, nil
}

func (s *service) List(ctx context.Context, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return s.query(page, func(validated pagination.Request) ([]models.InventoryItem, int64, error) {
		return s.repo.List(ctx, validated)
	})
}

func (s *service) ListByLocation(ctx context.Context, location string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	if strings.TrimSpace(location) == "" {
		return pagination.Page[models.InventoryItem]{}, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}
	return s.query(page, func(validated pagination.Request) ([]models.InventoryItem, int64, error) {
		return s.repo.ListByLocation(ctx, location, validated)
	})
}

func (s *service) SearchBySKU(ctx context.Context, fragment string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return s.query(page, func(validated pagination.Request) ([]models.InventoryItem, int64, error) {
		return s.repo.SearchBySKU(ctx, fragment, validated)
	})
}

func (s *service) SearchByName(ctx context.Context, fragment string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return s.query(page, func(validated pagination.Request) ([]models.InventoryItem, int64, error) {
		return s.repo.SearchByName(ctx, fragment, validated)
	})
}

func (s *service) LocationSummary(ctx context.Context) ([]LocationSummary, error) {
	rows, err := s.repo.LocationSummary(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating locations")
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, input ItemInput, actor string) (*models.InventoryItem, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	item := &models.InventoryItem{
		SKU:      strings.TrimSpace(input.SKU),
		Name:     input.Name,
		Qty:      input.Qty,
		Location: input.Location,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, item); err != nil {
			return translateWriteError(err, "creating inventory item")
		}
		details := fmt.Sprintf("Created item: %s", snapshot(item))
		_, err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			EventType:  enums.AuditEventCreate,
			EntityType: enums.EntityInventoryItem,
			EntityID:   item.ID,
			Actor:      actor,
			Details:    details,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.flushCache()
	return item, nil
}

func (s *service) CreateBatch(ctx context.Context, inputs []ItemInput, actor string) ([]models.InventoryItem, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	var combined error
	seen := make(map[string]struct{}, len(inputs))
	for i, input := range inputs {
		if err := validateInput(input); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		sku := strings.TrimSpace(input.SKU)
		if _, dup := seen[sku]; dup {
			combined = multierr.Append(combined, fmt.Errorf("item %d: duplicate SKU %q in batch", i, sku))
		}
		seen[sku] = struct{}{}
	}
	if combined != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "invalid batch")
	}

	items := make([]models.InventoryItem, len(inputs))
	for i, input := range inputs {
		items[i] = models.InventoryItem{
			SKU:      strings.TrimSpace(input.SKU),
			Name:     input.Name,
			Qty:      input.Qty,
			Location: input.Location,
		}
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txAudit := s.audit.WithTx(tx)
		for i := range items {
			if err := txRepo.Create(ctx, &items[i]); err != nil {
				return translateWriteError(err, "creating inventory item")
			}
			details := fmt.Sprintf("Created item: SKU=%s", items[i].SKU)
			if _, err := txAudit.Record(ctx, audit.RecordInput{
				EventType:  enums.AuditEventCreate,
				EntityType: enums.EntityInventoryItem,
				EntityID:   items[i].ID,
				Actor:      actor,
				Details:    details,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flushCache()
	return items, nil
}

func (s *service) Update(ctx context.Context, id int64, input ItemInput, actor string) (*models.InventoryItem, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var updated *models.InventoryItem
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		current, err := txRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
		}
		before := snapshot(current)

		current.SKU = strings.TrimSpace(input.SKU)
		current.Name = input.Name
		current.Qty = input.Qty
		current.Location = input.Location

		if err := txRepo.Update(ctx, current); err != nil {
			return translateWriteError(err, "updating inventory item")
		}

		details := fmt.Sprintf("Old: %s | New: %s", before, snapshot(current))
		if _, err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			EventType:  enums.AuditEventUpdate,
			EntityType: enums.EntityInventoryItem,
			EntityID:   current.ID,
			Actor:      actor,
			Details:    details,
		}); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flushCache()
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id int64, actor string) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		current, err := txRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
		}

		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting inventory item")
		}

		details := fmt.Sprintf("Deleted item: %s", snapshot(current))
		_, err = s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			EventType:  enums.AuditEventDelete,
			EntityType: enums.EntityInventoryItem,
			EntityID:   current.ID,
			Actor:      actor,
			Details:    details,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.flushCache()
	return nil
}

func (s *service) query(page pagination.Request, fetch func(pagination.Request) ([]models.InventoryItem, int64, error)) (pagination.Page[models.InventoryItem], error) {
	validated, err := page.Validate(SortFields)
	if err != nil {
		return pagination.Page[models.InventoryItem]{}, err
	}

	items, total, err := fetch(validated)
	if err != nil {
		return pagination.Page[models.InventoryItem]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "querying inventory")
	}
	return pagination.NewPage(items, validated, total), nil
}

func (s *service) flushCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

func validateInput(input ItemInput) error {
	if strings.TrimSpace(input.SKU) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "qty must not be negative")
	}
	if strings.TrimSpace(input.Location) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}
	return nil
}

func translateWriteError(err error, msg string) error {
	if db.IsUniqueViolation(err, "idx_inventory_items_sku") {
		return pkgerrors.New(pkgerrors.CodeValidation, "SKU already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

// snapshot renders the audit-facing view of an item.
func snapshot(item *models.InventoryItem) string {
	return fmt.Sprintf("SKU=%s, Name=%s, Qty=%d, Location=%s", item.SKU, item.Name, item.Qty, item.Location)
}
