package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/missedcall/internal/model"
)

func TestLookupAfterStore(t *testing.T) {
	t.Parallel()

	c := New()
	_, ok := c.Lookup("919811111111")
	assert.False(t, ok)

	c.Store("919811111111", model.PlanDelivered(""))

	got, ok := c.Lookup("919811111111")
	require.True(t, ok)
	assert.Equal(t, model.OutcomePlanDelivered, got.Kind())
	assert.Equal(t, model.NoRaazMitra, got.RaazMitra())
	assert.Equal(t, 1, c.Len())
}

func TestStoreReplaces(t *testing.T) {
	t.Parallel()

	c := New()
	c.Store("1", model.Unknown())
	c.Store("1", model.Lead("Asha", "Rohit"))

	got, ok := c.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, model.Lead("Asha", "Rohit"), got)
	assert.Equal(t, 1, c.Len())
}

func TestPartition(t *testing.T) {
	t.Parallel()

	c := New()
	c.Store("2", model.ConsultationDone())

	hits, misses := c.Partition([]string{"1", "2", "3"})
	assert.Equal(t, map[string]model.Outcome{"2": model.ConsultationDone()}, hits)
	assert.Equal(t, []string{"1", "3"}, misses)
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			phone := fmt.Sprintf("91980000%04d", i)
			c.Store(phone, model.PlanShipped())
			_, _ = c.Lookup(phone)
			_, _ = c.Partition([]string{phone})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
}
