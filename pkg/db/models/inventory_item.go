package models

import "time"

// InventoryItem is a tracked stock record. SKU is globally unique.
type InventoryItem struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SKU       string    `gorm:"column:sku;type:text;not null;uniqueIndex:idx_inventory_items_sku"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Qty       int       `gorm:"column:qty;not null;default:0"`
	Location  string    `gorm:"column:location;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
