package inventory

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/pagination"
)

// SortFields maps the public inventory sort keys to their columns.
var SortFields = map[string]string{
	"id":        "id",
	"sku":       "sku",
	"name":      "name",
	"qty":       "qty",
	"location":  "location",
	"updatedAt": "updated_at",
}

// Repository defines persistence operations for inventory items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) error
	GetByID(ctx context.Context, id int64) (*models.InventoryItem, error)
	GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error)
	List(ctx context.Context, page pagination.Request) ([]models.InventoryItem, int64, error)
	ListByLocation(ctx context.Context, location string, page pagination.Request) ([]models.InventoryItem, int64, error)
	SearchBySKU(ctx context.Context, fragment string, page pagination.Request) ([]models.InventoryItem, int64, error)
	SearchByName(ctx context.Context, fragment string, page pagination.Request) ([]models.InventoryItem, int64, error)
	LocationSummary(ctx context.Context) ([]LocationSummary, error)
	Update(ctx context.Context, item *models.InventoryItem) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, page pagination.Request) ([]models.InventoryItem, int64, error) {
	return r.paged(r.db.WithContext(ctx).Model(&models.InventoryItem{}), page)
}

func (r *repository) ListByLocation(ctx context.Context, location string, page pagination.Request) ([]models.InventoryItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("location = ?", location)
	return r.paged(query, page)
}

func (r *repository) SearchBySKU(ctx context.Context, fragment string, page pagination.Request) ([]models.InventoryItem, int64, error) {
	pattern := "%" + strings.ToLower(fragment) + "%"
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("LOWER(sku) LIKE ?", pattern)
	return r.paged(query, page)
}

func (r *repository) SearchByName(ctx context.Context, fragment string, page pagination.Request) ([]models.InventoryItem, int64, error) {
	pattern := "%" + strings.ToLower(fragment) + "%"
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("LOWER(name) LIKE ?", pattern)
	return r.paged(query, page)
}

func (r *repository) LocationSummary(ctx context.Context) ([]LocationSummary, error) {
	var rows []LocationSummary
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Select("location, COUNT(*) AS item_count, COALESCE(SUM(qty), 0) AS total_qty").
		Group("location").
		Order("location ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.InventoryItem{}, id).Error
}

func (r *repository) paged(query *gorm.DB, page pagination.Request) ([]models.InventoryItem, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.InventoryItem
	if err := query.
		Order(page.OrderClause("updated_at")).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
