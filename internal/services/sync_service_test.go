package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"seafarer/bosun/internal/constants"
	gormModels "seafarer/bosun/internal/models/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestSyncWorkItems_DedupesAcrossSources(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	// two known workflows, one record shared between them
	flowRepo := env.syncSvc.flowRepo
	for _, id := range []string{"wf-1", "wf-2"} {
		_, err := flowRepo.Upsert(ctx, &gormModels.Flow{PelagicID: id, Name: id})
		require.NoError(t, err)
	}

	env.provider.listWorkflowItemsFunc = func(_ context.Context, _, workflowID string) ([]json.RawMessage, int, error) {
		switch workflowID {
		case "wf-1":
			return []json.RawMessage{
				raw(`{"id":"wi-a","title":"From wf-1","workflowId":"wf-1"}`),
				raw(`{"id":"wi-shared","title":"First occurrence","workflowId":"wf-1"}`),
			}, 200, nil
		case "wf-2":
			return []json.RawMessage{
				raw(`{"id":"wi-shared","title":"Second occurrence","workflowId":"wf-2"}`),
			}, 200, nil
		}
		return nil, 404, fmt.Errorf("unknown workflow %s", workflowID)
	}

	res, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)

	// 3 records fetched, 2 unique
	assert.Equal(t, 2, res.ItemsFetched)
	assert.Equal(t, 2, res.ItemsCreated)
	assert.Equal(t, 0, res.ItemsUpdated)
	assert.Equal(t, 0, res.ItemsFailed)

	count, err := env.syncSvc.workItemRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// first occurrence wins for the shared id
	shared, err := env.syncSvc.workItemRepo.GetByPelagicID(ctx, "wi-shared")
	require.NoError(t, err)
	require.NotNil(t, shared)
	assert.Equal(t, "First occurrence", shared.Title)
	assert.Equal(t, "wf-1", shared.WorkflowID)
}

func TestSyncWorkItems_CountsRecordsWithoutIDAsFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.listAllItemsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"title":"Arrived without an id"}`),
			raw(`{"id":"wi-1","title":"Well formed"}`),
		}, 200, nil
	}

	res, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)

	// the keyless record cannot be mirrored but must not vanish from the
	// run accounting either
	assert.Equal(t, 1, res.ItemsFetched)
	assert.Equal(t, 1, res.ItemsCreated)
	assert.Equal(t, 1, res.ItemsFailed)
}

func TestSyncWorkItems_SkipsSoftDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.listAllItemsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"id":"wi-1","title":"Live item"}`),
			raw(`{"id":"wi-2","title":"Flagged","deleted":true}`),
			raw(`{"id":"wi-3","title":"Status marker","status":"Deleted"}`),
			raw(`{"id":"wi-4","title":"Nested marker","workflow_state":{"status":"deleted"}}`),
			raw(`{"id":"wi-5","title":"Fields marker","fields":{"Status":"DELETED"}}`),
		}, 200, nil
	}

	res, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 5, res.ItemsFetched)
	assert.Equal(t, 1, res.ItemsCreated)

	count, err := env.syncSvc.workItemRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	live, err := env.syncSvc.workItemRepo.GetByPelagicID(ctx, "wi-1")
	require.NoError(t, err)
	require.NotNil(t, live)
}

func TestSyncWorkItems_ConcurrencyGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	started := make(chan struct{})
	release := make(chan struct{})
	var startOnce sync.Once
	env.provider.listAllItemsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		startOnce.Do(func() { close(started) })
		<-release
		return nil, 200, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
		assert.NoError(t, err)
	}()

	<-started
	res, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.ErrorIs(t, err, constants.ErrSyncInProgress)
	require.NotNil(t, res)
	assert.True(t, res.Skipped)
	assert.Equal(t, "sync_in_progress", res.SkipReason)

	// a different entity type is not blocked
	assetsRes, err := env.syncSvc.SyncAssets(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, assetsRes.Skipped)

	close(release)
	wg.Wait()

	// guard released: the next run proceeds
	res, err = env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
}

func TestSyncWorkItems_DerivesScoresAndAssessments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.listAllItemsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{raw(`{
			"id": "wi-prop",
			"title": "Hull inspection",
			"vessel": {
				"id": "v-1",
				"name": "MV Orca",
				"particulars": {"mmsi": "123456789"},
				"inspection": {
					"components": [
						{
							"name": "Port Propeller",
							"category": "propulsion",
							"ratings": [
								{"fouling_level": {"numeric": 3, "rating": "HEAVY"}, "coverage_pct": 80, "comments": "barnacle colonies"}
							]
						}
					]
				}
			}
		}`)}, 200, nil
	}

	res, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsCreated)

	item, err := env.syncSvc.workItemRepo.GetByPelagicID(ctx, "wi-prop")
	require.NoError(t, err)
	require.NotNil(t, item)
	require.NotNil(t, item.NavigabilityScore)
	assert.Equal(t, 83, *item.NavigabilityScore)
	require.NotNil(t, item.HullPerformanceScore)
	assert.Equal(t, 88, *item.HullPerformanceScore)
	require.NotNil(t, item.VesselMMSI)
	assert.Equal(t, "123456789", *item.VesselMMSI)

	assessments, err := env.syncSvc.assessRepo.ListByWorkItem(ctx, "wi-prop")
	require.NoError(t, err)
	require.Len(t, assessments, 1)
	a := assessments[0]
	assert.Equal(t, "Port Propeller", a.ComponentName)
	assert.Equal(t, "propulsion", a.ComponentCategory)
	assert.Equal(t, 3, a.FoulingLevel)
	assert.Equal(t, "HEAVY", a.FoulingRating)
	assert.Equal(t, 80.0, a.CoveragePct)
	assert.Equal(t, "v-1", a.VesselID)
}

func TestSyncWorkItems_GraphQLAliasShape(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	// flattened aliases as produced by the chunk queries
	env.provider.listAllItemsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"id":"wi-flat","title":"Chunked","vesselId":"v-9","vesselName":"MV Flat","vesselMmsi":"987654321","vesselImo":"1234567","workflowId":"wf-9"}`),
		}, 200, nil
	}

	_, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)

	item, err := env.syncSvc.workItemRepo.GetByPelagicID(ctx, "wi-flat")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "v-9", item.VesselID)
	assert.Equal(t, "MV Flat", item.VesselName)
	assert.Equal(t, "wf-9", item.WorkflowID)
	require.NotNil(t, item.VesselMMSI)
	assert.Equal(t, "987654321", *item.VesselMMSI)
}

func TestSyncWorkItems_NoCredential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.ErrorIs(t, err, constants.ErrCredentialUnavailable)
	require.NotNil(t, res)
	assert.Equal(t, string(constants.SyncStatusFailed), res.Status)

	st, err := env.syncSvc.stateRepo.Get(ctx, "user-1", constants.EntityWorkItems)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, string(constants.SyncStatusFailed), st.SyncStatus)
	assert.Equal(t, 1, st.ErrorCount)
}

func TestSyncWorkItems_PartialListingFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	_, err := env.syncSvc.flowRepo.Upsert(ctx, &gormModels.Flow{PelagicID: "wf-bad", Name: "bad"})
	require.NoError(t, err)

	env.provider.listWorkflowItemsFunc = func(_ context.Context, _, _ string) ([]json.RawMessage, int, error) {
		return nil, 503, errors.New("upstream unavailable")
	}
	env.provider.listAllItemsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{raw(`{"id":"wi-ok","title":"Still synced"}`)}, 200, nil
	}

	res, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(constants.SyncStatusCompleted), res.Status)
	assert.Equal(t, 1, res.ItemsCreated)

	// the partial failure lands in the audit log detail
	logs := env.logStore.all()
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].ErrorDetail)
	assert.Contains(t, *logs[0].ErrorDetail, "1 of 2 listings failed")
}

func TestSyncAssets_StoresRegistryThings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.listRegistriesFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"id":"reg-1","name":"Fleet"}`),
		}, 200, nil
	}
	env.provider.listRegistryThingsFunc = func(_ context.Context, _, registryID string) ([]json.RawMessage, int, error) {
		require.Equal(t, "reg-1", registryID)
		return []json.RawMessage{
			raw(`{"id":"as-1","name":"MV Orca","particulars":{"mmsi":"123456789","pennant":"P-77"},"classification":{"class":"tug","type":"harbor"}}`),
			raw(`{"id":"as-1","name":"duplicate"}`),
			raw(`{"id":"as-2","name":"MV Manta"}`),
		}, 200, nil
	}

	res, err := env.syncSvc.SyncAssets(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemsFetched)
	assert.Equal(t, 2, res.ItemsCreated)

	var orca gormModels.Asset
	require.NoError(t, env.db.Where("pelagic_id = ?", "as-1").First(&orca).Error)
	assert.Equal(t, "MV Orca", orca.Name)
	assert.Equal(t, "reg-1", orca.RegistryID)
	assert.Equal(t, "tug", orca.VesselClass)
	require.NotNil(t, orca.MMSI)
	assert.Equal(t, "123456789", *orca.MMSI)
	require.NotNil(t, orca.Pennant)
	assert.Equal(t, "P-77", *orca.Pennant)
}

func TestSyncAssets_RegistryListingFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.listRegistriesFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return nil, 502, errors.New("bad gateway")
	}

	res, err := env.syncSvc.SyncAssets(ctx, "user-1")
	require.Error(t, err)
	assert.Equal(t, string(constants.SyncStatusFailed), res.Status)
}

func TestSyncFlows_FullReplace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.listWorkflowsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"id":"wf-1","name":"Hull Inspections","description":"Periodic hull work"}`),
		}, 200, nil
	}

	res, err := env.syncSvc.SyncFlows(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsCreated)

	// second run with a renamed flow replaces the row
	env.provider.listWorkflowsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"id":"wf-1","name":"Hull Inspections v2"}`),
		}, 200, nil
	}

	res, err = env.syncSvc.SyncFlows(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsUpdated)

	flows, err := env.syncSvc.flowRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "Hull Inspections v2", flows[0].Name)
	// full replace: the description from the first payload is gone
	assert.Equal(t, "", flows[0].Description)
}

func TestFullSync_ContinuesPastFailedStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.listRegistriesFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return nil, 500, errors.New("registries exploded")
	}
	env.provider.listWorkflowsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{raw(`{"id":"wf-1","name":"Flows still sync"}`)}, 200, nil
	}

	out := env.syncSvc.FullSync(ctx, "user-1")
	require.Len(t, out.Results, 3)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "registries exploded")

	// the flows step after the failed assets step still ran
	flows, err := env.syncSvc.flowRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

func TestSyncCompletion_Bookkeeping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.listAllItemsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{raw(`{"id":"wi-1","title":"One"}`)}, 200, nil
	}

	_, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)

	st, err := env.syncSvc.stateRepo.Get(ctx, "user-1", constants.EntityWorkItems)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, string(constants.SyncStatusCompleted), st.SyncStatus)
	assert.Equal(t, 1, st.TotalSynced)
	require.NotNil(t, st.LastSyncAt)

	conn, err := env.connRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, conn.LastSyncAt)

	logs := env.logStore.all()
	require.Len(t, logs, 1)
	assert.Equal(t, constants.OpManualSync, logs[0].Operation)
	assert.Equal(t, string(constants.SyncStatusCompleted), logs[0].Status)
	assert.Equal(t, 1, logs[0].ItemsFetched)
}
