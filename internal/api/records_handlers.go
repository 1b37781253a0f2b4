package api

import (
	"net/http"
	"strconv"
	"time"

	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/constants"
	"seafarer/bosun/internal/db/repositories"

	"github.com/go-chi/chi/v5"
)

// ListWorkItems handles GET /api/v1/workitems
// Optional filters: vessel_id, workflow_id, status, limit.
func (h *Handlers) ListWorkItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		q := r.URL.Query()
		filters := repositories.WorkItemFilters{
			VesselID:   q.Get("vessel_id"),
			WorkflowID: q.Get("workflow_id"),
			Status:     q.Get("status"),
		}
		if limitStr := q.Get("limit"); limitStr != "" {
			limit, err := strconv.Atoi(limitStr)
			if err != nil || limit < 1 {
				common.RespondError(w, initTime, err, "Invalid limit", http.StatusBadRequest)
				return
			}
			filters.Limit = limit
		}

		items, err := h.deps.Repo.WorkItem.List(r.Context(), filters)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to list work items", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Work items", items)
	}
}

// GetWorkItem handles GET /api/v1/workitems/{pelagicId}
func (h *Handlers) GetWorkItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		pelagicID := chi.URLParam(r, "pelagicId")
		item, err := h.deps.Repo.WorkItem.GetByPelagicID(r.Context(), pelagicID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to fetch work item", http.StatusInternalServerError)
			return
		}
		if item == nil {
			common.RespondError(w, initTime, nil, "Work item not found", http.StatusNotFound)
			return
		}

		assessments, err := h.deps.Repo.Assessment.ListByWorkItem(r.Context(), pelagicID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to fetch assessments", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Work item", map[string]any{
			"work_item":   item,
			"assessments": assessments,
		})
	}
}

// ListAssets handles GET /api/v1/assets
// Optional filters: registry_id, vessel_class, limit. The unfiltered
// listing is cached briefly; registry contents only move on sync.
func (h *Handlers) ListAssets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		q := r.URL.Query()
		filters := repositories.AssetFilters{
			RegistryID:  q.Get("registry_id"),
			VesselClass: q.Get("vessel_class"),
		}
		if limitStr := q.Get("limit"); limitStr != "" {
			limit, err := strconv.Atoi(limitStr)
			if err != nil || limit < 1 {
				common.RespondError(w, initTime, err, "Invalid limit", http.StatusBadRequest)
				return
			}
			filters.Limit = limit
		}

		if filters == (repositories.AssetFilters{}) {
			cacheKey := string(constants.CachePrefixRegistryList) + "all"
			assets, err := h.deps.Services.Cache.GetOrSet(cacheKey, time.Minute, func() (any, error) {
				return h.deps.Repo.Asset.List(r.Context(), filters)
			})
			if err != nil {
				common.RespondError(w, initTime, err, "Failed to list assets", http.StatusInternalServerError)
				return
			}
			common.RespondSuccess(w, initTime, "Assets", assets)
			return
		}

		assets, err := h.deps.Repo.Asset.List(r.Context(), filters)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to list assets", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Assets", assets)
	}
}

// ListVesselAssessments handles GET /api/v1/vessels/{vesselId}/assessments
// All component-level biofouling assessments recorded for a vessel.
func (h *Handlers) ListVesselAssessments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		vesselID := chi.URLParam(r, "vesselId")
		assessments, err := h.deps.Repo.Assessment.ListByVessel(r.Context(), vesselID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to fetch assessments", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Vessel assessments", assessments)
	}
}

// ListFlows handles GET /api/v1/flows
func (h *Handlers) ListFlows() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		flows, err := h.deps.Repo.Flow.List(r.Context())
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to list flows", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Flows", flows)
	}
}
