package channels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnbounded_PreservesOrder(t *testing.T) {
	t.Parallel()

	in, out, _ := Unbounded[int]()

	// Send a burst without any receiver; none of these may block.
	for i := 0; i < 100; i++ {
		in <- i
	}

	close(in)

	var got []int
	for v := range out {
		got = append(got, v)
	}

	require.Len(t, got, 100)

	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestUnbounded_Length(t *testing.T) {
	t.Parallel()

	in, out, length := Unbounded[string]()

	assert.Equal(t, 0, length())

	in <- "a"
	in <- "b"

	// The buffering goroutine needs a moment to pick the values up.
	require.Eventually(t, func() bool {
		return length() == 2
	}, time.Second, time.Millisecond)

	assert.Equal(t, "a", <-out)

	require.Eventually(t, func() bool {
		return length() == 1
	}, time.Second, time.Millisecond)

	close(in)
	assert.Equal(t, "b", <-out)

	_, ok := <-out
	assert.False(t, ok, "output should be closed after drain")
}

func TestUnbounded_CloseDrains(t *testing.T) {
	t.Parallel()

	in, out, _ := Unbounded[int]()

	in <- 1
	in <- 2
	close(in)

	assert.Equal(t, 1, <-out)
	assert.Equal(t, 2, <-out)

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for output close")
	}
}

func TestCloseIgnorePanic(t *testing.T) {
	t.Parallel()

	ch := make(chan int)

	CloseIgnorePanic(ch)
	// Second close must not panic.
	CloseIgnorePanic(ch)
	// Nil channel is a no-op.
	CloseIgnorePanic[int](nil)
}
