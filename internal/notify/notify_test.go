package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetWakesWaiters(t *testing.T) {
	var v Var[int]

	val, wakeup := v.Get()
	assert.Equal(t, 0, val)

	done := make(chan int, 1)
	go func() {
		<-wakeup
		got, _ := v.Get()
		done <- got
	}()

	v.Set(42)

	select {
	case got := <-done:
		assert.Equal(t, 42, got)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestSequentialSetsEachWakeOnce(t *testing.T) {
	var v Var[string]
	_, w1 := v.Get()
	v.Set("a")
	select {
	case <-w1:
	default:
		t.Fatal("expected w1 to be closed after Set")
	}

	cur, w2 := v.Get()
	require.Equal(t, "a", cur)
	select {
	case <-w2:
		t.Fatal("w2 should not be closed yet")
	default:
	}
	v.Set("b")
	select {
	case <-w2:
	default:
		t.Fatal("expected w2 to be closed after second Set")
	}
}
