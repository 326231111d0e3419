package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDPrefixesKind(t *testing.T) {
	gen := NewUUID()
	for _, kind := range []Kind{KindWallet, KindTransaction, KindOwner} {
		id := gen.New(kind)
		assert.True(t, strings.HasPrefix(id, string(kind)+"-"), "id %q missing prefix %s", id, kind)
	}
}

func TestUUIDUniqueUnderConcurrency(t *testing.T) {
	gen := NewUUID()

	const workers = 16
	const perWorker = 2_000

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, gen.New(KindTransaction))
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestSequenceIsMonotonic(t *testing.T) {
	seq := NewSequence()
	assert.Equal(t, "WLT-000001", seq.New(KindWallet))
	assert.Equal(t, "TXN-000002", seq.New(KindTransaction))
	assert.Equal(t, "USR-000003", seq.New(KindOwner))
}

func TestFuncAdapter(t *testing.T) {
	gen := Func(func(kind Kind) string { return string(kind) + "-fixed" })
	assert.Equal(t, "TXN-fixed", gen.New(KindTransaction))
}
