package providers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWindows_EmptyInterval(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, SplitWindows(at, at))
	assert.Nil(t, SplitWindows(at, at.AddDate(0, 0, -1)))
}

func TestSplitWindows_ContiguousTwoMonthWindows(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	windows := SplitWindows(from, to)
	require.Len(t, windows, 4)

	assert.Equal(t, from, windows[0].From)
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].To, windows[i].From, "windows must be contiguous")
	}
	assert.Equal(t, to, windows[len(windows)-1].To)

	for _, w := range windows[:3] {
		assert.Equal(t, w.From.AddDate(0, 2, 0), w.To)
	}
}

func TestSplitWindows_ClipsFinalWindow(t *testing.T) {
	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	windows := SplitWindows(from, to)
	require.Len(t, windows, 2)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), windows[0].To)
	assert.Equal(t, to, windows[1].To)
}

func TestBuildChunkQuery(t *testing.T) {
	w := DateWindow{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	query := BuildChunkQuery("wf-42", w)

	assert.Contains(t, query, `workflowId: "wf-42"`)
	assert.Contains(t, query, `modifiedAfter: "2024-01-01T00:00:00Z"`)
	assert.Contains(t, query, `modifiedBefore: "2024-03-01T00:00:00Z"`)
	assert.Contains(t, query, "includeCompleted: true")
	assert.Contains(t, query, "includeDeleted: true")

	// every extraction path must appear as an alias
	for _, ep := range chunkExtractionPaths {
		assert.True(t, strings.Contains(query, ep.alias+": field(path:"),
			"query must extract %s", ep.alias)
	}
	assert.Contains(t, query, "id\n")
}
