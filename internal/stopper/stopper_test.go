package stopper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoRunsAndStopWaits(t *testing.T) {
	ctx := WithContext(context.Background())

	ran := make(chan struct{})
	ctx.Go(func() error {
		<-ctx.Stopping()
		close(ran)
		return nil
	})

	errs := ctx.Stop(time.Second)
	require.Empty(t, errs)

	select {
	case <-ran:
	default:
		t.Fatal("goroutine did not observe Stopping before Stop returned")
	}
}

func TestStopCollectsErrors(t *testing.T) {
	ctx := WithContext(context.Background())
	boom := errors.New("boom")
	ctx.Go(func() error { return boom })

	errs := ctx.Stop(time.Second)
	require.Len(t, errs, 1)
	assert.Equal(t, boom, errs[0])
}

func TestStopTimesOutAndCancels(t *testing.T) {
	ctx := WithContext(context.Background())
	ctx.Go(func() error {
		<-ctx.Done()
		return nil
	})

	errs := ctx.Stop(10 * time.Millisecond)
	assert.Empty(t, errs)
}
