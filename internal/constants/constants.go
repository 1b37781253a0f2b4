package constants

type (
	APIStatus   string
	EntityType  string
	SyncStatus  string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	EntityWorkItems EntityType = "work_items"
	EntityAssets    EntityType = "assets"
	EntityFlows     EntityType = "flows"

	SyncStatusIdle       SyncStatus = "idle"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"

	// Operation kinds recorded on sync logs
	OpFullSync        = "full_sync"
	OpIncrementalSync = "incremental_sync"
	OpManualSync      = "manual_sync"
	OpHistoricExtract = "historic_extract"

	CachePrefixSyncCooldown CachePrefix = "SYNC_COOLDOWN_"
	CachePrefixRegistryList CachePrefix = "REGISTRY_LIST_"
)

// ValidEntityTypes lists the entity types accepted by the sync trigger API.
var ValidEntityTypes = []EntityType{EntityWorkItems, EntityAssets, EntityFlows}

func IsValidEntityType(t string) bool {
	for _, v := range ValidEntityTypes {
		if string(v) == t {
			return true
		}
	}
	return false
}
