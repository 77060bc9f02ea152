package chanutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnboundedFIFO(t *testing.T) {
	u := NewUnbounded[int]()
	for i := 0; i < 5; i++ {
		u.In() <- i
	}
	for i := 0; i < 5; i++ {
		select {
		case v := <-u.Out():
			require.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for value")
		}
	}
}

func TestUnboundedCloseDrains(t *testing.T) {
	u := NewUnbounded[int]()
	u.In() <- 1
	u.In() <- 2
	u.Close()

	got := []int{}
	for v := range u.Out() {
		got = append(got, v)
	}
	require.Equal(t, []int{1, 2}, got)
}

func TestUnboundedDoesNotBlockProducer(t *testing.T) {
	u := NewUnbounded[int]()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			u.In() <- i
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked on unbounded channel")
	}
}
