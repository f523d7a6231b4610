package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stocktrail/stocktrail-backend/api/responses"
	"github.com/stocktrail/stocktrail-backend/api/validators"
	"github.com/stocktrail/stocktrail-backend/internal/audit"
	"github.com/stocktrail/stocktrail-backend/pkg/enums"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
)

// ListAuditEvents handles GET /api/audit-events.
func ListAuditEvents(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePageRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetAuditEvent handles GET /api/audit-events/{id}.
func GetAuditEvent(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

// ListAuditEventsByEntity handles GET /api/audit-events/entity/{entityType}/{entityId}.
func ListAuditEventsByEntity(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePageRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entityID, err := pathID(r, "entityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entityType := enums.EntityType(chi.URLParam(r, "entityType"))
		result, err := svc.ListByEntity(r.Context(), entityType, entityID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListAuditEventsByEntityType handles GET /api/audit-events/entity-type/{entityType}.
func ListAuditEventsByEntityType(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePageRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entityType := enums.EntityType(chi.URLParam(r, "entityType"))
		result, err := svc.ListByEntityType(r.Context(), entityType, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListAuditEventsByEventType handles GET /api/audit-events/event-type/{eventType}.
func ListAuditEventsByEventType(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePageRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventType := enums.AuditEventType(strings.ToUpper(chi.URLParam(r, "eventType")))
		result, err := svc.ListByEventType(r.Context(), eventType, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListAuditEventsByUser handles GET /api/audit-events/user/{userId}.
func ListAuditEventsByUser(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePageRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByUserID(r.Context(), chi.URLParam(r, "userId"), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
