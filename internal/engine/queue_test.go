package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(Event{Type: EventNavigation, URL: "/?a=1"})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, EventNavigation, got.Type)
	assert.Equal(t, "/?a=1", got.URL)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for _, url := range []string{"/a", "/b", "/c"} {
		q.Enqueue(Event{Type: EventNavigation, URL: url})
	}

	for _, want := range []string{"/a", "/b", "/c"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.URL)
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "empty queue should not dequeue")
}

func TestEventQueue_Wait_SignalsOnEnqueue(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Event{Type: EventCancel})
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("wait should be signalled by enqueue")
	}

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, EventCancel, got.Type)
}

func TestEventQueue_Close_UnblocksWait(t *testing.T) {
	q := newEventQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close should unblock waiters")
	}
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close() // idempotent

	ok := q.Enqueue(Event{Type: EventNavigation, URL: "/"})
	assert.False(t, ok, "enqueue after close should fail")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()
	assert.Equal(t, 0, q.Len())

	q.Enqueue(Event{Type: EventNavigation, URL: "/a"})
	q.Enqueue(Event{Type: EventNavigation, URL: "/b"})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(Event{Type: EventNavigation, URL: "/"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())

	count := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, 1000, count)
}
