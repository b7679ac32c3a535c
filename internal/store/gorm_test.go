// internal/store/gorm_test.go
package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGormStoreListeningFlagConcurrentAccess(t *testing.T) {
	s := NewGormStore(nil)
	assert.False(t, s.listening.Load())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.listening.Store(true)
		}()
		go func() {
			defer wg.Done()
			_ = s.listening.Load()
		}()
	}
	wg.Wait()

	assert.True(t, s.listening.Load())
}

func TestGormStoreCloseWithoutListener(t *testing.T) {
	s := NewGormStore(nil)
	assert.NoError(t, s.Close(context.Background()))
}
