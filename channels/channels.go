// Package channels provides the channel plumbing used by the executor: an
// unbounded FIFO queue so submitters never block on a busy worker, and a
// close helper that tolerates double-close during shutdown races.
package channels

import "sync"

// CloseIgnorePanic closes a channel like normal. However, if the channel has
// already been closed, it will suppress the resulting panic.
func CloseIgnorePanic[T any](ch chan<- T) {
	if ch == nil {
		return
	}

	defer func() {
		// Recover from panic if the channel is already closed
		_ = recover()
	}()

	close(ch)
}

// Unbounded creates a channel pair with unlimited buffering between them.
// Sends on the write side never block; values are delivered on the read side
// in the order they were sent. The third return reports the number of values
// buffered but not yet received, which the executor exports as queue depth.
//
// Closing the write side drains the queue and then closes the read side.
//
// Note: use with care in long-running processes; if the sender outpaces the
// receiver the internal queue grows without limit. Monitor the length
// function when that matters.
func Unbounded[T any]() (chan<- T, <-chan T, func() int) {
	inputCh := make(chan T)
	outputCh := make(chan T)

	var (
		mu      sync.Mutex
		pending int
	)

	length := func() int {
		mu.Lock()
		defer mu.Unlock()

		return pending
	}

	go func() {
		var queue []T

		setPending := func(n int) {
			mu.Lock()
			pending = n
			mu.Unlock()
		}

		// outCh disables the send case while the queue is empty by
		// returning a nil channel.
		outCh := func() chan T {
			if len(queue) == 0 {
				return nil
			}

			return outputCh
		}

		// head returns the next value to send, or the zero value when
		// the send case is disabled anyway.
		head := func() T {
			if len(queue) == 0 {
				var zero T

				return zero
			}

			return queue[0]
		}

		// Run until the input is closed and the queue is drained.
		for len(queue) > 0 || inputCh != nil {
			select {
			case v, ok := <-inputCh:
				if !ok {
					inputCh = nil
				} else {
					queue = append(queue, v)
					setPending(len(queue))
				}
			case outCh() <- head():
				queue = queue[1:]
				setPending(len(queue))
			}
		}

		close(outputCh)
	}()

	return inputCh, outputCh, length
}
