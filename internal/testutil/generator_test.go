package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator(t *testing.T) {
	g := NewSequentialIDGenerator("sweep")
	assert.Equal(t, "sweep-0001", g.Generate())
	assert.Equal(t, "sweep-0002", g.Generate())
	assert.Equal(t, "sweep-0003", g.Generate())
}

func TestSequentialIDGeneratorDefaultPrefix(t *testing.T) {
	g := NewSequentialIDGenerator("")
	assert.Equal(t, "id-0001", g.Generate())
}

func TestSequentialIDGeneratorConcurrent(t *testing.T) {
	g := NewSequentialIDGenerator("x")

	var wg sync.WaitGroup
	seen := make(chan string, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- g.Generate()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]struct{})
	for id := range seen {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 100, "ids must be unique under concurrency")
}
