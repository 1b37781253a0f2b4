package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"seafarer/bosun/internal/auth"
	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/constants"
	"seafarer/bosun/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

// TriggerSync handles POST /api/v1/sync/{entityType}
// Runs a manual sync for one entity type. A run already in flight for
// the same user and entity type yields 409.
func (h *Handlers) TriggerSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		entityType := chi.URLParam(r, "entityType")
		if !constants.IsValidEntityType(entityType) {
			common.RespondError(w, initTime, nil, "Unknown entity type: "+entityType, http.StatusBadRequest)
			return
		}

		var (
			res *dtos.SyncResult
			err error
		)
		switch constants.EntityType(entityType) {
		case constants.EntityWorkItems:
			res, err = h.deps.Services.Sync.SyncWorkItems(r.Context(), claims.UserID())
		case constants.EntityAssets:
			res, err = h.deps.Services.Sync.SyncAssets(r.Context(), claims.UserID())
		case constants.EntityFlows:
			res, err = h.deps.Services.Sync.SyncFlows(r.Context(), claims.UserID())
		}

		if errors.Is(err, constants.ErrSyncInProgress) {
			common.RespondError(w, initTime, err, "Sync already running", http.StatusConflict)
			return
		}
		if errors.Is(err, constants.ErrCredentialUnavailable) {
			common.RespondError(w, initTime, err, "Reconnect required", http.StatusUnprocessableEntity)
			return
		}
		if err != nil {
			common.RespondError(w, initTime, err, "Sync failed", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Sync completed", res)
	}
}

// TriggerSyncAsync handles POST /api/v1/sync/{entityType}/async
// Enqueues the sync request on the Redis stream and returns 202; a queue
// worker performs the run.
func (h *Handlers) TriggerSyncAsync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		entityType := chi.URLParam(r, "entityType")
		if !constants.IsValidEntityType(entityType) {
			common.RespondError(w, initTime, nil, "Unknown entity type: "+entityType, http.StatusBadRequest)
			return
		}

		req := &common.SyncRequest{
			UserID:     claims.UserID(),
			EntityType: entityType,
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := h.deps.Services.RedisQueue.EnqueueSyncRequest(r.Context(), common.SyncRequestStream, req); err != nil {
			common.RespondError(w, initTime, err, "Failed to enqueue sync request", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Sync request queued", req, http.StatusAccepted)
	}
}

// TriggerFullSync handles POST /api/v1/sync/full
// Runs work items, assets and flows sequentially; per-entity failures
// are reported in the body rather than aborting the run.
func (h *Handlers) TriggerFullSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		res := h.deps.Services.Sync.FullSync(r.Context(), claims.UserID())
		common.RespondSuccess(w, initTime, "Full sync finished", res)
	}
}

// TriggerHistoricExtract handles POST /api/v1/sync/historic
// Date-chunked GraphQL backfill over the requested window and workflows.
func (h *Handlers) TriggerHistoricExtract() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		var req dtos.HistoricExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			common.RespondError(w, initTime, err, "Validation failed", http.StatusBadRequest)
			return
		}

		res, err := h.deps.Services.Sync.ExtractHistoric(r.Context(), claims.UserID(), req.From, req.To, req.WorkflowIDs)
		if errors.Is(err, constants.ErrSyncInProgress) {
			common.RespondError(w, initTime, err, "Sync already running", http.StatusConflict)
			return
		}
		if errors.Is(err, constants.ErrCredentialUnavailable) {
			common.RespondError(w, initTime, err, "Reconnect required", http.StatusUnprocessableEntity)
			return
		}
		if err != nil {
			common.RespondError(w, initTime, err, "Historic extraction failed", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Historic extraction completed", res)
	}
}

// GetSyncStatus handles GET /api/v1/sync/status
// Per-entity state plus the most recent audit log entries.
func (h *Handlers) GetSyncStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		states, err := h.deps.Repo.SyncState.ListByUser(r.Context(), claims.UserID())
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to fetch sync state", http.StatusInternalServerError)
			return
		}

		entries := make([]dtos.SyncStatusEntry, 0, len(states))
		for _, st := range states {
			entries = append(entries, dtos.SyncStatusEntry{
				EntityType:  st.EntityType,
				SyncStatus:  st.SyncStatus,
				LastSyncAt:  st.LastSyncAt,
				TotalSynced: st.TotalSynced,
				LastError:   st.LastError,
				ErrorCount:  st.ErrorCount,
			})
		}

		recent, err := h.deps.Repo.SyncLog.RecentRuns(r.Context(), claims.UserID(), 20)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to fetch sync history", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Sync status", map[string]any{
			"states":      entries,
			"recent_runs": recent,
		})
	}
}
