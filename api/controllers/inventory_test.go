package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/stocktrail/stocktrail-backend/api/middleware"
	"github.com/stocktrail/stocktrail-backend/internal/inventory"
	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	pkgerrors "github.com/stocktrail/stocktrail-backend/pkg/errors"
	"github.com/stocktrail/stocktrail-backend/pkg/pagination"
)

type stubInventoryService struct {
	createFn      func(ctx context.Context, input inventory.ItemInput, actor string) (*models.InventoryItem, error)
	createBatchFn func(ctx context.Context, inputs []inventory.ItemInput, actor string) ([]models.InventoryItem, error)
	getFn         func(ctx context.Context, id int64) (*models.InventoryItem, error)
	listFn        func(ctx context.Context, page pagination.Request) (pagination.Page[models.InventoryItem], error)
	updateFn      func(ctx context.Context, id int64, input inventory.ItemInput, actor string) (*models.InventoryItem, error)
	deleteFn      func(ctx context.Context, id int64, actor string) error
}

func (s stubInventoryService) Get(ctx context.Context, id int64) (*models.InventoryItem, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &models.InventoryItem{ID: id}, nil
}

func (s stubInventoryService) GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	return &models.InventoryItem{SKU: sku}, nil
}

func (s stubInventoryService) List(ctx context.Context, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	if s.listFn != nil {
		return s.listFn(ctx, page)
	}
	return pagination.NewPage([]models.InventoryItem{}, page.Normalize(), 0), nil
}

func (s stubInventoryService) ListByLocation(ctx context.Context, location string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return pagination.NewPage([]models.InventoryItem{}, page.Normalize(), 0), nil
}

func (s stubInventoryService) SearchBySKU(ctx context.Context, fragment string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return pagination.NewPage([]models.InventoryItem{}, page.Normalize(), 0), nil
}

func (s stubInventoryService) SearchByName(ctx context.Context, fragment string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return pagination.NewPage([]models.InventoryItem{}, page.Normalize(), 0), nil
}

func (s stubInventoryService) LocationSummary(ctx context.Context) ([]inventory.LocationSummary, error) {
	return []inventory.LocationSummary{{Location: "A1", ItemCount: 2, TotalQty: 15}}, nil
}

func (s stubInventoryService) Create(ctx context.Context, input inventory.ItemInput, actor string) (*models.InventoryItem, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input, actor)
	}
	return &models.InventoryItem{ID: 1, SKU: input.SKU}, nil
}

func (s stubInventoryService) CreateBatch(ctx context.Context, inputs []inventory.ItemInput, actor string) ([]models.InventoryItem, error) {
	if s.createBatchFn != nil {
		return s.createBatchFn(ctx, inputs, actor)
	}
	return []models.InventoryItem{}, nil
}

func (s stubInventoryService) Update(ctx context.Context, id int64, input inventory.ItemInput, actor string) (*models.InventoryItem, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, input, actor)
	}
	return &models.InventoryItem{ID: id, SKU: input.SKU}, nil
}

func (s stubInventoryService) Delete(ctx context.Context, id int64, actor string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id, actor)
	}
	return nil
}

func identityContext(r *http.Request, username string) *http.Request {
	ctx := middleware.WithIdentity(r.Context(), 7, username, []enums.Role{enums.RoleManager})
	return r.WithContext(ctx)
}

func TestCreateItemPassesActorFromIdentity(t *testing.T) {
	var gotInput inventory.ItemInput
	var gotActor string
	svc := stubInventoryService{
		createFn: func(ctx context.Context, input inventory.ItemInput, actor string) (*models.InventoryItem, error) {
			gotInput = input
			gotActor = actor
			return &models.InventoryItem{ID: 5, SKU: input.SKU, Name: input.Name, Qty: input.Qty, Location: input.Location}, nil
		},
	}
	handler := CreateItem(svc, nil)

	body := `{"sku":"  SKU-9 ","name":"Widget","qty":4,"location":"A1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(body))
	req = identityContext(req, "alice")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}
	if gotActor != "alice" {
		t.Fatalf("expected actor alice got %q", gotActor)
	}
	if gotInput.SKU != "SKU-9" {
		t.Fatalf("expected trimmed sku got %q", gotInput.SKU)
	}

	var envelope struct {
		Data models.InventoryItem `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != 5 || envelope.Data.SKU != "SKU-9" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestCreateItemRejectsMissingFields(t *testing.T) {
	handler := CreateItem(stubInventoryService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(`{"name":"Widget"}`))
	req = identityContext(req, "alice")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateItemRejectsUnknownFields(t *testing.T) {
	handler := CreateItem(stubInventoryService{}, nil)

	body := `{"sku":"SKU-1","name":"Widget","qty":1,"location":"A1","surprise":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(body))
	req = identityContext(req, "alice")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field got %d", resp.Code)
	}
}

func TestCreateItemsBatchDecodesArray(t *testing.T) {
	var gotInputs []inventory.ItemInput
	svc := stubInventoryService{
		createBatchFn: func(ctx context.Context, inputs []inventory.ItemInput, actor string) ([]models.InventoryItem, error) {
			gotInputs = inputs
			out := make([]models.InventoryItem, len(inputs))
			for i, in := range inputs {
				out[i] = models.InventoryItem{ID: int64(i + 1), SKU: in.SKU}
			}
			return out, nil
		},
	}
	handler := CreateItemsBatch(svc, nil)

	body := `[{"sku":"B-1","name":"One","qty":1,"location":"A1"},{"sku":"B-2","name":"Two","qty":2,"location":"A2"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/batch", strings.NewReader(body))
	req = identityContext(req, "batch-loader")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}
	if len(gotInputs) != 2 || gotInputs[1].SKU != "B-2" {
		t.Fatalf("unexpected inputs %+v", gotInputs)
	}
}

func TestCreateItemsBatchRejectsInvalidEntry(t *testing.T) {
	handler := CreateItemsBatch(stubInventoryService{}, nil)

	body := `[{"sku":"B-1","name":"One","qty":1,"location":"A1"},{"sku":"","name":"Two","qty":2,"location":"A2"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/batch", strings.NewReader(body))
	req = identityContext(req, "batch-loader")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid entry got %d", resp.Code)
	}
}

func TestGetItemRejectsBadID(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/inventory/{id}", GetItem(stubInventoryService{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/zero", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id got %d", resp.Code)
	}
}

func TestGetItemNotFound(t *testing.T) {
	svc := stubInventoryService{
		getFn: func(ctx context.Context, id int64) (*models.InventoryItem, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		},
	}
	router := chi.NewRouter()
	router.Get("/api/inventory/{id}", GetItem(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/99", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != "inventory item not found" {
		t.Fatalf("unexpected error message %q", envelope.Error.Message)
	}
}

func TestListItemsForwardsPagination(t *testing.T) {
	var gotPage pagination.Request
	svc := stubInventoryService{
		listFn: func(ctx context.Context, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
			gotPage = page
			return pagination.NewPage([]models.InventoryItem{{ID: 1, SKU: "P-1"}}, page.Normalize(), 1), nil
		},
	}
	handler := ListItems(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory?page=2&size=5&sortBy=sku&sortDir=asc", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotPage.Page != 2 || gotPage.Size != 5 || gotPage.SortBy != "sku" || gotPage.SortDir != "asc" {
		t.Fatalf("unexpected page request %+v", gotPage)
	}
}

func TestListItemsRejectsBadPageParam(t *testing.T) {
	handler := ListItems(stubInventoryService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory?page=abc", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page got %d", resp.Code)
	}
}

func TestUpdateItemForwardsIDAndActor(t *testing.T) {
	var gotID int64
	var gotActor string
	svc := stubInventoryService{
		updateFn: func(ctx context.Context, id int64, input inventory.ItemInput, actor string) (*models.InventoryItem, error) {
			gotID = id
			gotActor = actor
			return &models.InventoryItem{ID: id, SKU: input.SKU}, nil
		},
	}
	router := chi.NewRouter()
	router.Put("/api/inventory/{id}", UpdateItem(svc, nil))

	body := `{"sku":"U-1","name":"After","qty":7,"location":"B2"}`
	req := httptest.NewRequest(http.MethodPut, "/api/inventory/42", strings.NewReader(body))
	req = identityContext(req, "bob")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	if gotID != 42 || gotActor != "bob" {
		t.Fatalf("expected id 42 actor bob got %d %q", gotID, gotActor)
	}
}

func TestDeleteItemReturnsStatus(t *testing.T) {
	var gotID int64
	svc := stubInventoryService{
		deleteFn: func(ctx context.Context, id int64, actor string) error {
			gotID = id
			return nil
		},
	}
	router := chi.NewRouter()
	router.Delete("/api/inventory/{id}", DeleteItem(svc, nil))

	req := httptest.NewRequest(http.MethodDelete, "/api/inventory/12", nil)
	req = identityContext(req, "carol")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotID != 12 {
		t.Fatalf("expected id 12 got %d", gotID)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["status"] != "deleted" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}
