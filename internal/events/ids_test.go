package events

import (
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOrderedIDs_AreUUIDv7(t *testing.T) {
	id := TimeOrderedIDs{}.Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestTimeOrderedIDs_UniqueAcrossGoroutines(t *testing.T) {
	const publishers = 100

	ids := make(chan string, publishers)
	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- TimeOrderedIDs{}.Generate()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, publishers)
	for id := range ids {
		require.False(t, seen[id], "event id %s issued twice", id)
		seen[id] = true
	}
}

func TestTimeOrderedIDs_SortInPublishOrder(t *testing.T) {
	var ids []string
	for i := 0; i < 20; i++ {
		ids = append(ids, TimeOrderedIDs{}.Generate())
	}
	assert.True(t, slices.IsSorted(ids))
}

func TestIDFunc(t *testing.T) {
	n := 0
	gen := IDFunc(func() string {
		n++
		return "evt-" + string(rune('0'+n))
	})

	assert.Equal(t, "evt-1", gen.Generate())
	assert.Equal(t, "evt-2", gen.Generate())
}
