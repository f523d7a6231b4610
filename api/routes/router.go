package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stocktrail/stocktrail-backend/api/controllers"
	"github.com/stocktrail/stocktrail-backend/api/middleware"
	"github.com/stocktrail/stocktrail-backend/internal/audit"
	"github.com/stocktrail/stocktrail-backend/internal/auth"
	"github.com/stocktrail/stocktrail-backend/internal/inventory"
	"github.com/stocktrail/stocktrail-backend/pkg/config"
	"github.com/stocktrail/stocktrail-backend/pkg/db"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
	"github.com/stocktrail/stocktrail-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	authService auth.Service,
	inventoryService inventory.Service,
	auditService audit.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, logg))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
			Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).
			Post("/register", controllers.AuthRegister(authService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
			Post("/forgot-password", controllers.AuthForgotPassword(authService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/me", controllers.AuthMe(authService, logg))
			r.Post("/change-password", controllers.AuthChangePassword(authService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleAdmin)).
				Post("/admin/reset-password", controllers.AuthAdminResetPassword(authService, logg))
		})
	})

	r.Route("/api/inventory", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/", controllers.ListItems(inventoryService, logg))
		r.Get("/{id:[0-9]+}", controllers.GetItem(inventoryService, logg))
		r.Get("/sku/{sku}", controllers.GetItemBySKU(inventoryService, logg))
		r.Get("/location/{location}", controllers.ListItemsByLocation(inventoryService, logg))
		r.Get("/search/sku", controllers.SearchItemsBySKU(inventoryService, logg))
		r.Get("/search/name", controllers.SearchItemsByName(inventoryService, logg))
		r.Get("/summary/location", controllers.LocationSummary(inventoryService, logg))

		// Mutations are restricted to managers and admins.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleManager))
			r.Post("/", controllers.CreateItem(inventoryService, logg))
			r.Post("/batch", controllers.CreateItemsBatch(inventoryService, logg))
			r.Put("/{id:[0-9]+}", controllers.UpdateItem(inventoryService, logg))
			r.Delete("/{id:[0-9]+}", controllers.DeleteItem(inventoryService, logg))
		})
	})

	r.Route("/api/audit-events", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleManager))

		r.Get("/", controllers.ListAuditEvents(auditService, logg))
		r.Get("/{id:[0-9]+}", controllers.GetAuditEvent(auditService, logg))
		r.Get("/entity/{entityType}/{entityId:[0-9]+}", controllers.ListAuditEventsByEntity(auditService, logg))
		r.Get("/entity-type/{entityType}", controllers.ListAuditEventsByEntityType(auditService, logg))
		r.Get("/event-type/{eventType}", controllers.ListAuditEventsByEventType(auditService, logg))
		r.Get("/user/{userId}", controllers.ListAuditEventsByUser(auditService, logg))
	})

	return r
}
