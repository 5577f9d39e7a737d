package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpCatalogSearch, 10*time.Millisecond)
	c.RecordTiming(OpCatalogSearch, 30*time.Millisecond)

	snap := c.Snapshot()
	op := snap.Operations[OpCatalogSearch]
	require.NotNil(t, op)
	assert.EqualValues(t, 2, op.Count)
	assert.EqualValues(t, 40, op.TotalTimeMs)
	assert.InDelta(t, 20.0, op.AvgTimeMs, 0.001)
	assert.EqualValues(t, 10, op.MinTimeMs)
	assert.EqualValues(t, 30, op.MaxTimeMs)
	assert.Nil(t, op.TotalInputTokens)
}

func TestRecordYield(t *testing.T) {
	c := NewCollector()
	op := ScrapeOp("Reddit")
	c.RecordYield(op, time.Second, 5)
	c.RecordYield(op, time.Second, 0)

	snap := c.Snapshot().Operations[op]
	require.NotNil(t, snap)
	assert.EqualValues(t, 2, snap.Count)
	assert.EqualValues(t, 1, snap.Failures)
	assert.EqualValues(t, 5, snap.TotalItems)
}

func TestRecordLLMUsage(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage(OpLLMGenerate, 2*time.Second, 1200, 300)
	c.RecordFailure(OpLLMGenerate, time.Second)

	snap := c.Snapshot().Operations[OpLLMGenerate]
	require.NotNil(t, snap)
	assert.EqualValues(t, 2, snap.Count)
	assert.EqualValues(t, 1, snap.Failures)
	require.NotNil(t, snap.TotalInputTokens)
	assert.EqualValues(t, 1200, *snap.TotalInputTokens)
	assert.EqualValues(t, 300, *snap.TotalOutputTokens)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordTiming(OpIngest, time.Second)
	c.RecordYield(ScrapeOp("Goodreads"), time.Second, 1)
	c.RecordLLMUsage(OpLLMStream, time.Second, 1, 1)
	assert.Empty(t, c.Snapshot().Operations)
}

func TestSnapshotNamesSorted(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(ScrapeOp("The Guardian"), time.Millisecond)
	c.RecordTiming(OpIngest, time.Millisecond)
	c.RecordTiming(OpCatalogLookup, time.Millisecond)

	assert.Equal(t, []string{OpCatalogLookup, OpIngest, "scrape:The Guardian"}, c.Snapshot().Names())
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordYield(ScrapeOp("Goodreads"), time.Millisecond, 2)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 100, c.Snapshot().Operations[ScrapeOp("Goodreads")].Count)
}
