package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail-backend/internal/audit"
	"github.com/stocktrail/stocktrail-backend/internal/auth"
	"github.com/stocktrail/stocktrail-backend/internal/inventory"
	"github.com/stocktrail/stocktrail-backend/internal/users"
	pkgAuth "github.com/stocktrail/stocktrail-backend/pkg/auth"
	"github.com/stocktrail/stocktrail-backend/pkg/config"
	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
	"github.com/stocktrail/stocktrail-backend/pkg/pagination"
	"github.com/stocktrail/stocktrail-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct {
	loginFn func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
}

func (s stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{Username: req.Username}, nil
}

func (s stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return &auth.LoginResponse{AccessToken: "token"}, nil
}

func (stubAuthService) Me(ctx context.Context, userID int64) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

func (stubAuthService) ChangePassword(ctx context.Context, userID int64, req auth.ChangePasswordRequest) error {
	return nil
}

func (stubAuthService) ForgotPassword(ctx context.Context, req auth.ForgotPasswordRequest) error {
	return nil
}

func (stubAuthService) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return nil
}

func (stubAuthService) AdminResetPassword(ctx context.Context, req auth.AdminResetPasswordRequest) error {
	return nil
}

type stubInventoryService struct {
	createFn func(ctx context.Context, input inventory.ItemInput, actor string) (*models.InventoryItem, error)
}

func (stubInventoryService) Get(ctx context.Context, id int64) (*models.InventoryItem, error) {
	return &models.InventoryItem{ID: id}, nil
}

func (stubInventoryService) GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	return &models.InventoryItem{SKU: sku}, nil
}

func (stubInventoryService) List(ctx context.Context, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return pagination.NewPage([]models.InventoryItem{}, page.Normalize(), 0), nil
}

func (stubInventoryService) ListByLocation(ctx context.Context, location string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return pagination.NewPage([]models.InventoryItem{}, page.Normalize(), 0), nil
}

func (stubInventoryService) SearchBySKU(ctx context.Context, fragment string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return pagination.NewPage([]models.InventoryItem{}, page.Normalize(), 0), nil
}

func (stubInventoryService) SearchByName(ctx context.Context, fragment string, page pagination.Request) (pagination.Page[models.InventoryItem], error) {
	return pagination.NewPage([]models.InventoryItem{}, page.Normalize(), 0), nil
}

func (stubInventoryService) LocationSummary(ctx context.Context) ([]inventory.LocationSummary, error) {
	return []inventory.LocationSummary{}, nil
}

func (s stubInventoryService) Create(ctx context.Context, input inventory.ItemInput, actor string) (*models.InventoryItem, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input, actor)
	}
	return &models.InventoryItem{ID: 1, SKU: input.SKU}, nil
}

func (stubInventoryService) CreateBatch(ctx context.Context, inputs []inventory.ItemInput, actor string) ([]models.InventoryItem, error) {
	return []models.InventoryItem{}, nil
}

func (stubInventoryService) Update(ctx context.Context, id int64, input inventory.ItemInput, actor string) (*models.InventoryItem, error) {
	return &models.InventoryItem{ID: id, SKU: input.SKU}, nil
}

func (stubInventoryService) Delete(ctx context.Context, id int64, actor string) error {
	return nil
}

type stubAuditService struct{}

func (s stubAuditService) WithTx(tx *gorm.DB) audit.Service {
	return s
}

func (stubAuditService) Record(ctx context.Context, input audit.RecordInput) (*models.AuditEvent, error) {
	return &models.AuditEvent{ID: 1}, nil
}

func (stubAuditService) Get(ctx context.Context, id int64) (*models.AuditEvent, error) {
	return &models.AuditEvent{ID: id}, nil
}

func (stubAuditService) List(ctx context.Context, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	return pagination.NewPage([]models.AuditEvent{}, page.Normalize(), 0), nil
}

func (stubAuditService) ListByEntity(ctx context.Context, entityType enums.EntityType, entityID int64, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	return pagination.NewPage([]models.AuditEvent{}, page.Normalize(), 0), nil
}

func (stubAuditService) ListByEntityType(ctx context.Context, entityType enums.EntityType, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	return pagination.NewPage([]models.AuditEvent{}, page.Normalize(), 0), nil
}

func (stubAuditService) ListByEventType(ctx context.Context, eventType enums.AuditEventType, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	return pagination.NewPage([]models.AuditEvent{}, page.Normalize(), 0), nil
}

func (stubAuditService) ListByUserID(ctx context.Context, userID string, page pagination.Request) (pagination.Page[models.AuditEvent], error) {
	return pagination.NewPage([]models.AuditEvent{}, page.Normalize(), 0), nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubAuthService{},
		stubInventoryService{},
		stubAuditService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, roles ...enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   7,
		Username: "router-test",
		Roles:    roles,
		JTI:      "router-test-jti",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestInventoryRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestInventoryReadsAllowAnyAuthenticatedRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for authenticated list got %d", resp.Code)
	}
}

func TestInventoryMutationsRequireManagerOrAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"sku":"SKU-1","name":"Widget","qty":3,"location":"A1"}`

	asUser := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(body))
	asUser.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asUser)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for plain user create got %d", resp.Code)
	}

	asManager := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(body))
	asManager.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleManager))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asManager)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for manager create got %d", resp.Code)
	}

	asAdmin := httptest.NewRequest(http.MethodDelete, "/api/inventory/12", nil)
	asAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asAdmin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin delete got %d", resp.Code)
	}
}

func TestAuditEventsRequireManagerOrAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	asUser := httptest.NewRequest(http.MethodGet, "/api/audit-events", nil)
	asUser.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asUser)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for plain user audit list got %d", resp.Code)
	}

	asManager := httptest.NewRequest(http.MethodGet, "/api/audit-events/entity/InventoryItem/42", nil)
	asManager.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleManager))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asManager)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager audit lookup got %d", resp.Code)
	}
}

func TestAdminResetPasswordRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"username":"casey","new_password":"changed-password"}`

	asManager := httptest.NewRequest(http.MethodPost, "/api/auth/admin/reset-password", strings.NewReader(body))
	asManager.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleManager))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asManager)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager admin-reset got %d", resp.Code)
	}

	asAdmin := httptest.NewRequest(http.MethodPost, "/api/auth/admin/reset-password", strings.NewReader(body))
	asAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asAdmin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin admin-reset got %d", resp.Code)
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestResetPasswordIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	body := `{"token":"abc","new_password":"long-enough-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public reset got %d", resp.Code)
	}
}
