package inventory

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/internal/audit"
	"github.com/stocktrail/stocktrail-backend/pkg/cache"
	"github.com/stocktrail/stocktrail-backend/pkg/db"
	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	pkgerrors "github.com/stocktrail/stocktrail-backend/pkg/errors"
	"github.com/stocktrail/stocktrail-backend/pkg/pagination"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	items := `
CREATE TABLE IF NOT EXISTS inventory_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL DEFAULT 0,
  location TEXT NOT NULL,
  updated_at DATETIME
);`
	skuIndex := `CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_items_sku ON inventory_items (sku);`
	events := `
CREATE TABLE IF NOT EXISTS audit_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id INTEGER NOT NULL,
  user_id TEXT,
  details TEXT,
  timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	require.NoError(t, conn.Exec(items).Error)
	require.NoError(t, conn.Exec(skuIndex).Error)
	require.NoError(t, conn.Exec(events).Error)
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB, *ItemCache) {
	t.Helper()

	conn := setupInventoryTestDB(t)
	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)

	itemCache := cache.New[string, models.InventoryItem](cache.Options{
		Capacity:  100,
		WriteTTL:  30 * time.Minute,
		AccessTTL: 15 * time.Minute,
	})

	svc, err := NewService(db.NewFromGorm(conn), NewRepository(conn), auditSvc, itemCache)
	require.NoError(t, err)
	return svc, conn, itemCache
}

func auditEvents(t *testing.T, conn *gorm.DB) []models.AuditEvent {
	t.Helper()
	var events []models.AuditEvent
	require.NoError(t, conn.Order("id ASC").Find(&events).Error)
	return events
}

func countItems(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.InventoryItem{}).Count(&count).Error)
	return count
}

func TestService_CreateRecordsAudit(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{SKU: "WIDGET-1", Name: "Widget", Qty: 5, Location: "A1"}, "alice")
	require.NoError(t, err)
	require.NotZero(t, item.ID)

	events := auditEvents(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, enums.AuditEventCreate, events[0].EventType)
	assert.Equal(t, enums.EntityInventoryItem, events[0].EntityType)
	assert.Equal(t, item.ID, events[0].EntityID)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, "alice", *events[0].UserID)
	require.NotNil(t, events[0].Details)
	assert.Equal(t, "Created item: SKU=WIDGET-1, Name=Widget, Qty=5, Location=A1", *events[0].Details)
}

func TestService_CreateAnonymousActor(t *testing.T) {
	svc, conn, _ := newTestService(t)

	_, err := svc.Create(context.Background(), ItemInput{SKU: "W-2", Name: "Widget", Qty: 1, Location: "A1"}, "")
	require.NoError(t, err)

	events := auditEvents(t, conn)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].UserID)
}

func TestService_CreateDuplicateSKU(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ItemInput{SKU: "DUP-1", Name: "First", Qty: 1, Location: "A1"}, "alice")
	require.NoError(t, err)

	_, err = svc.Create(ctx, ItemInput{SKU: "DUP-1", Name: "Second", Qty: 2, Location: "B2"}, "alice")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "SKU already exists", typed.Message())

	// The failed create must not leave an item or an audit event behind.
	assert.Equal(t, int64(1), countItems(t, conn))
	assert.Len(t, auditEvents(t, conn), 1)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []ItemInput{
		{Name: "n", Qty: 1, Location: "l"},
		{SKU: "s", Qty: 1, Location: "l"},
		{SKU: "s", Name: "n", Qty: -1, Location: "l"},
		{SKU: "s", Name: "n", Qty: 1},
	}
	for _, input := range cases {
		_, err := svc.Create(ctx, input, "")
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "input %+v", input)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestService_CreateBatchAllOrNothing(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ItemInput{SKU: "TAKEN", Name: "Existing", Qty: 1, Location: "A1"}, "")
	require.NoError(t, err)

	// Second batch entry collides with an existing SKU at commit time.
	_, err = svc.CreateBatch(ctx, []ItemInput{
		{SKU: "NEW-1", Name: "One", Qty: 1, Location: "A1"},
		{SKU: "TAKEN", Name: "Two", Qty: 2, Location: "A2"},
		{SKU: "NEW-3", Name: "Three", Qty: 3, Location: "A3"},
	}, "bob")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	assert.Equal(t, int64(1), countItems(t, conn))
	assert.Len(t, auditEvents(t, conn), 1)
}

func TestService_CreateBatchSuccess(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	items, err := svc.CreateBatch(ctx, []ItemInput{
		{SKU: "B-1", Name: "One", Qty: 1, Location: "A1"},
		{SKU: "B-2", Name: "Two", Qty: 2, Location: "A2"},
	}, "bob")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.NotZero(t, items[0].ID)
	assert.NotZero(t, items[1].ID)

	events := auditEvents(t, conn)
	require.Len(t, events, 2)
	require.NotNil(t, events[0].Details)
	assert.Equal(t, "Created item: SKU=B-1", *events[0].Details)
	require.NotNil(t, events[1].Details)
	assert.Equal(t, "Created item: SKU=B-2", *events[1].Details)
}

func TestService_CreateBatchRejectsIntraBatchDuplicates(t *testing.T) {
	svc, conn, _ := newTestService(t)

	_, err := svc.CreateBatch(context.Background(), []ItemInput{
		{SKU: "SAME", Name: "One", Qty: 1, Location: "A1"},
		{SKU: "SAME", Name: "Two", Qty: 2, Location: "A2"},
	}, "")
	require.Error(t, err)
	assert.Equal(t, int64(0), countItems(t, conn))
}

func TestService_UpdateRecordsDiff(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{SKU: "U-1", Name: "Before", Qty: 5, Location: "A1"}, "")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, item.ID, ItemInput{SKU: "U-1", Name: "After", Qty: 7, Location: "B2"}, "carol")
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, 7, updated.Qty)

	events := auditEvents(t, conn)
	require.Len(t, events, 2)
	last := events[1]
	assert.Equal(t, enums.AuditEventUpdate, last.EventType)
	assert.Equal(t, item.ID, last.EntityID)
	require.NotNil(t, last.Details)
	assert.Equal(t,
		"Old: SKU=U-1, Name=Before, Qty=5, Location=A1 | New: SKU=U-1, Name=After, Qty=7, Location=B2",
		*last.Details)
}

func TestService_UpdateMissing(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), 999, ItemInput{SKU: "X", Name: "X", Qty: 1, Location: "X"}, "")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestService_DeleteRecordsPreDeleteState(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{SKU: "D-1", Name: "Doomed", Qty: 3, Location: "C3"}, "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, item.ID, "dave"))
	assert.Equal(t, int64(0), countItems(t, conn))

	events := auditEvents(t, conn)
	require.Len(t, events, 2)
	last := events[1]
	assert.Equal(t, enums.AuditEventDelete, last.EventType)
	assert.Equal(t, item.ID, last.EntityID)
	require.NotNil(t, last.Details)
	assert.Equal(t, "Deleted item: SKU=D-1, Name=Doomed, Qty=3, Location=C3", *last.Details)
}

func TestService_DeleteMissing(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Delete(context.Background(), 12345, "")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestService_GetReadsThroughCache(t *testing.T) {
	svc, conn, itemCache := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{SKU: "C-1", Name: "Cached", Qty: 1, Location: "A1"}, "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.Name)
	assert.Equal(t, 1, itemCache.Len())

	// Row changes behind the cache's back are not visible until eviction.
	require.NoError(t, conn.Model(&models.InventoryItem{}).Where("id = ?", item.ID).Update("name", "Stale").Error)
	got, err = svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.Name)
}

func TestService_MutationsFlushCache(t *testing.T) {
	svc, _, itemCache := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{SKU: "F-1", Name: "First", Qty: 1, Location: "A1"}, "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, item.ID)
	require.NoError(t, err)
	_, err = svc.GetBySKU(ctx, "F-1")
	require.NoError(t, err)
	require.Equal(t, 2, itemCache.Len())

	_, err = svc.Update(ctx, item.ID, ItemInput{SKU: "F-1", Name: "Second", Qty: 2, Location: "A1"}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, itemCache.Len())

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
}

func TestService_FailedMutationKeepsCache(t *testing.T) {
	svc, _, itemCache := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{SKU: "K-1", Name: "Keep", Qty: 1, Location: "A1"}, "")
	require.NoError(t, err)
	_, err = svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 1, itemCache.Len())

	_, err = svc.Create(ctx, ItemInput{SKU: "K-1", Name: "Dup", Qty: 1, Location: "A1"}, "")
	require.Error(t, err)
	assert.Equal(t, 1, itemCache.Len())
}

func TestService_QueriesAndSummary(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateBatch(ctx, []ItemInput{
		{SKU: "ALPHA-1", Name: "Bolt", Qty: 10, Location: "A1"},
		{SKU: "ALPHA-2", Name: "Nut", Qty: 5, Location: "A1"},
		{SKU: "BETA-1", Name: "Bolt Large", Qty: 2, Location: "B1"},
	}, "")
	require.NoError(t, err)

	page, err := svc.List(ctx, pagination.Request{Size: 10, SortBy: "sku", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalElements)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "ALPHA-1", page.Items[0].SKU)

	page, err = svc.ListByLocation(ctx, "A1", pagination.Request{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	page, err = svc.SearchBySKU(ctx, "alpha", pagination.Request{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	page, err = svc.SearchByName(ctx, "BOLT", pagination.Request{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	summary, err := svc.LocationSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "A1", summary[0].Location)
	assert.Equal(t, int64(2), summary[0].ItemCount)
	assert.Equal(t, int64(15), summary[0].TotalQty)
	assert.Equal(t, "B1", summary[1].Location)
	assert.Equal(t, int64(2), summary[1].TotalQty)
}

func TestService_GetBySKUNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetBySKU(context.Background(), "MISSING")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestService_ListValidatesPagination(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, pagination.Request{Page: -1, Size: 10})
	require.Error(t, err)
	_, err = svc.List(ctx, pagination.Request{Size: pagination.MaxSize + 1})
	require.Error(t, err)
	_, err = svc.List(ctx, pagination.Request{Size: 10, SortBy: "secret"})
	require.Error(t, err)
}
