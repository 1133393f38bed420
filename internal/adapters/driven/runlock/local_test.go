package runlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

func TestLocal_ExcludesSameKey(t *testing.T) {
	lock := NewLocal()
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "pipeline")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "pipeline")
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	other, err := lock.Acquire(ctx, "other")
	require.NoError(t, err, "keys are independent")
	other()

	release()
	release() // idempotent

	again, err := lock.Acquire(ctx, "pipeline")
	require.NoError(t, err)
	again()
}

func TestLocal_OneWinnerUnderContention(t *testing.T) {
	lock := NewLocal()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := lock.Acquire(context.Background(), "k"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
