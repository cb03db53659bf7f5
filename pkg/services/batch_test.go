package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

func batchProvider() *llm.MockProvider {
	p := llm.NewMockProvider()
	p.CompleteFunc = func(ctx context.Context, pc llm.PromptContext) (string, error) {
		switch pc.Component {
		case llm.ComponentLinker:
			return `{"elements": [], "literals": []}`, nil
		case llm.ComponentClassifier:
			return "TIER: EASY", nil
		default:
			return sqlBlock("SELECT Name FROM Macros"), nil
		}
	}
	return p
}

func TestBatchRunner_Run(t *testing.T) {
	store := newScriptedStore(alwaysSucceed)
	runner := NewBatchRunner(NewResolver(store, batchProvider(), nil, zap.NewNop()), 3, zap.NewNop())

	var items []BatchItem
	for i := 0; i < 10; i++ {
		items = append(items, BatchItem{ID: fmt.Sprintf("q%d", i), Question: "Which macros are wide?", Partition: "cells:HighDensity/nom"})
	}
	items = append(items,
		BatchItem{ID: "bad-key", Question: "q", Partition: "cells"},
		BatchItem{ID: "no-backing", Question: "q", Partition: "cells:HighDensity/typ"},
	)

	var (
		mu       sync.Mutex
		progress []int
	)
	results := runner.Run(context.Background(), items, testConfig(2), func(current, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, len(items), total)
		progress = append(progress, current)
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, items[i].ID, r.ID)
	}
	for _, r := range results[:10] {
		require.NotNil(t, r.Resolution)
		assert.Equal(t, models.StateResolved, r.Resolution.Status)
	}
	assert.Nil(t, results[10].Resolution)
	assert.Contains(t, results[10].Error, "invalid partition key")
	assert.Nil(t, results[11].Resolution)
	assert.Contains(t, results[11].Error, string(apperrors.KindUnknownPartition))

	assert.Len(t, progress, len(items))
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, progress)

	assert.Equal(t, BatchSummary{Total: 12, Resolved: 10, Failed: 2}, Summarize(results))
}

func TestBatchRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newScriptedStore(alwaysSucceed)
	runner := NewBatchRunner(NewResolver(store, batchProvider(), nil, zap.NewNop()), 0, zap.NewNop())

	items := []BatchItem{
		{ID: "a", Question: "q", Partition: "cells:HighDensity/nom"},
		{ID: "b", Question: "q", Partition: "netlist:place"},
	}
	results := runner.Run(ctx, items, testConfig(2), nil)

	require.Len(t, results, 2)
	for _, r := range results {
		require.NotNil(t, r.Resolution)
		assert.Equal(t, models.StateCancelled, r.Resolution.Status)
	}
	assert.Equal(t, BatchSummary{Total: 2, Cancelled: 2}, Summarize(results))
	assert.Empty(t, store.Queries())
}

func TestSummarize(t *testing.T) {
	results := []BatchResult{
		{Resolution: &models.Resolution{Status: models.StateResolved}},
		{Resolution: &models.Resolution{Status: models.StateExhausted}},
		{Resolution: &models.Resolution{Status: models.StateExhausted}},
		{Resolution: &models.Resolution{Status: models.StateCancelled}},
		{Error: "boom"},
	}
	assert.Equal(t, BatchSummary{Total: 5, Resolved: 1, Exhausted: 2, Cancelled: 1, Failed: 1}, Summarize(results))
}
