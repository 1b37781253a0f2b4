package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"seafarer/bosun/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHistoric_ChunksAndIngests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")
	env.syncSvc.chunkRetryWait = time.Millisecond

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC) // 3 two-month windows

	var mu sync.Mutex
	queries := []string{}
	env.provider.queryGraphQLFunc = func(_ context.Context, _, query string) ([]json.RawMessage, int, error) {
		mu.Lock()
		queries = append(queries, query)
		n := len(queries)
		mu.Unlock()

		// same record returned by adjacent windows plus one unique per call
		return []json.RawMessage{
			raw(`{"id":"wi-overlap","title":"Seen in every window"}`),
			raw(`{"id":"wi-` + string(rune('a'+n-1)) + `","title":"Window record"}`),
		}, 200, nil
	}

	res, err := env.syncSvc.ExtractHistoric(ctx, "user-1", from, to, []string{"wf-1"})
	require.NoError(t, err)

	assert.Equal(t, constants.OpHistoricExtract, res.Operation)
	assert.Equal(t, string(constants.SyncStatusCompleted), res.Status)

	// 3 windows x 2 records, deduplicated to 4 unique
	_, _, graphQL := env.provider.calls()
	assert.Equal(t, 3, graphQL)
	assert.Equal(t, 4, res.ItemsFetched)
	assert.Equal(t, 4, res.ItemsCreated)

	count, err := env.syncSvc.workItemRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	for _, q := range queries {
		assert.Contains(t, q, "wf-1")
		assert.Contains(t, q, "includeCompleted: true")
		assert.Contains(t, q, "includeDeleted: true")
	}
}

func TestExtractHistoric_RetriesFailedChunkOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")
	env.syncSvc.chunkRetryWait = time.Millisecond

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC) // single window

	var mu sync.Mutex
	calls := 0
	env.provider.queryGraphQLFunc = func(_ context.Context, _, _ string) ([]json.RawMessage, int, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return nil, 504, errors.New("gateway timeout")
		}
		return []json.RawMessage{raw(`{"id":"wi-retry","title":"Second attempt"}`)}, 200, nil
	}

	res, err := env.syncSvc.ExtractHistoric(ctx, "user-1", from, to, []string{"wf-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, res.ItemsFetched)
	assert.Equal(t, 1, res.ItemsCreated)

	item, err := env.syncSvc.workItemRepo.GetByPelagicID(ctx, "wi-retry")
	require.NoError(t, err)
	require.NotNil(t, item)
}

func TestExtractHistoric_AbandonsChunkAfterSecondFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")
	env.syncSvc.chunkRetryWait = time.Millisecond

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC) // two windows

	var mu sync.Mutex
	env.provider.queryGraphQLFunc = func(_ context.Context, _, query string) ([]json.RawMessage, int, error) {
		mu.Lock()
		defer mu.Unlock()
		// the first window fails on both attempts; the second succeeds
		if strings.Contains(query, "2023-01-01") {
			return nil, 500, errors.New("window is cursed")
		}
		return []json.RawMessage{raw(`{"id":"wi-good","title":"Healthy window"}`)}, 200, nil
	}

	res, err := env.syncSvc.ExtractHistoric(ctx, "user-1", from, to, []string{"wf-1"})
	require.NoError(t, err)

	// abandoned pair does not sink the run
	assert.Equal(t, string(constants.SyncStatusCompleted), res.Status)
	assert.Equal(t, 1, res.ItemsFetched)
	assert.Equal(t, 1, res.ItemsCreated)

	// 2 attempts for the cursed window, 1 for the healthy one
	_, _, graphQL := env.provider.calls()
	assert.Equal(t, 3, graphQL)

	logs := env.logStore.all()
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].ErrorDetail)
	assert.Contains(t, *logs[0].ErrorDetail, "1 of 2 workflow/window pairs abandoned")
}

func TestExtractHistoric_DropsRecordsDeletedViaWorkflowStatusAlias(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")
	env.syncSvc.chunkRetryWait = time.Millisecond

	// chunk queries flatten workflow_state.status to the workflowStatus
	// alias, so the delete marker arrives top-level here
	env.provider.queryGraphQLFunc = func(_ context.Context, _, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"id":"wi-del","title":"Gone upstream","workflowStatus":"Deleted"}`),
			raw(`{"id":"wi-live","title":"Still open","workflowStatus":"Open"}`),
		}, 200, nil
	}

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	res, err := env.syncSvc.ExtractHistoric(ctx, "user-1", from, to, []string{"wf-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsCreated)

	deleted, err := env.syncSvc.workItemRepo.GetByPelagicID(ctx, "wi-del")
	require.NoError(t, err)
	assert.Nil(t, deleted)

	live, err := env.syncSvc.workItemRepo.GetByPelagicID(ctx, "wi-live")
	require.NoError(t, err)
	require.NotNil(t, live)
}

func TestExtractHistoric_SharesGuardWithWorkItemSync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")
	env.syncSvc.chunkRetryWait = time.Millisecond

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
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)

	res, err := env.syncSvc.ExtractHistoric(ctx, "user-1", from, to, []string{"wf-1"})
	require.ErrorIs(t, err, constants.ErrSyncInProgress)
	assert.True(t, res.Skipped)

	close(release)
	wg.Wait()
}

func TestExtractHistoric_RecordsRemergeIntoExistingRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")
	env.syncSvc.chunkRetryWait = time.Millisecond

	// regular sync stores the item with vessel particulars
	env.provider.listAllItemsFunc = func(_ context.Context, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"id":"wi-1","title":"Current","vessel":{"particulars":{"mmsi":"123456789"}}}`),
		}, 200, nil
	}
	_, err := env.syncSvc.SyncWorkItems(ctx, "user-1")
	require.NoError(t, err)

	// historic chunk re-returns the same id without particulars
	env.provider.queryGraphQLFunc = func(_ context.Context, _, _ string) ([]json.RawMessage, int, error) {
		return []json.RawMessage{
			raw(`{"id":"wi-1","title":"Historic title"}`),
		}, 200, nil
	}

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	res, err := env.syncSvc.ExtractHistoric(ctx, "user-1", from, to, []string{"wf-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsUpdated)
	assert.Equal(t, 0, res.ItemsCreated)

	item, err := env.syncSvc.workItemRepo.GetByPelagicID(ctx, "wi-1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Historic title", item.Title)
	require.NotNil(t, item.VesselMMSI)
	assert.Equal(t, "123456789", *item.VesselMMSI)
}
