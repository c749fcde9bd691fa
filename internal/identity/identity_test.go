package identity

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaim(t *testing.T) {
	t.Parallel()

	c := NewCache()
	id := Identity{File: "/src/a.h", Line: 3}

	assert.True(t, c.Claim(id))
	assert.False(t, c.Claim(id), "second claim of the same identity")
	assert.True(t, c.Claim(Identity{File: "/src/a.h", Line: 4}))
	assert.True(t, c.Claim(Identity{File: "/src/b.h", Line: 3}))
	assert.Equal(t, "/src/a.h:3", id.String())
}

func TestClaimConcurrent(t *testing.T) {
	t.Parallel()

	c := NewCache()
	id := Identity{File: "/src/shared.h", Line: 10}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for n := 0; n < 32; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Claim(id) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
