package transmit_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagekit/tracker/pkg/tracker/event"
	trkerrors "github.com/engagekit/tracker/pkg/tracker/errors"
	"github.com/engagekit/tracker/pkg/tracker/spool"
	"github.com/engagekit/tracker/pkg/tracker/task"
	"github.com/engagekit/tracker/pkg/tracker/transmit"
)

// recordingDelegate captures delivery lifecycle callbacks.
type recordingDelegate struct {
	mu        sync.Mutex
	completed []*task.Task
	failed    []*task.Task
}

func (d *recordingDelegate) TrackingTaskDidComplete(t *task.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed = append(d.completed, t)
}

func (d *recordingDelegate) TrackingTaskDidFail(t *task.Task, _ error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed = append(d.failed, t)
}

func (d *recordingDelegate) completedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.completed)
}

func (d *recordingDelegate) failedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.failed)
}

func newTask(name event.Name) *task.Task {
	return task.New(event.NewNamed(name, nil), "visitor-1", "")
}

// waitDone fails the test if the task does not reach a terminal state.
func waitDone(t *testing.T, tk *task.Task) {
	t.Helper()
	select {
	case <-tk.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("task %s never completed (state %s)", tk.ID(), tk.State())
	}
}

func TestFlushByBatchSize(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tx := transmit.New(transmit.Config{
		Endpoint:      srv.URL,
		BatchSize:     2,
		FlushInterval: time.Hour, // size, not time, must trigger the flush
		Retry:         trkerrors.NoRetry,
	})
	defer tx.Close()

	t1, t2 := newTask("a"), newTask("b")
	tx.Track(t1)
	tx.Track(t2)

	waitDone(t, t1)
	waitDone(t, t2)
	assert.Equal(t, task.StateSent, t1.State())
	assert.Equal(t, task.StateSent, t2.State())
	assert.Equal(t, int32(1), requests.Load())
}

func TestFlushByInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tx := transmit.New(transmit.Config{
		Endpoint:      srv.URL,
		BatchSize:     100,
		FlushInterval: 20 * time.Millisecond,
		Retry:         trkerrors.NoRetry,
	})
	defer tx.Close()

	tk := newTask("a")
	tx.Track(tk)

	waitDone(t, tk)
	assert.Equal(t, task.StateSent, tk.State())
}

func TestRetryTransientThenSucceed(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tx := transmit.New(transmit.Config{
		Endpoint:  srv.URL,
		BatchSize: 1,
		Retry: trkerrors.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			BackoffFactor:  1.0,
		},
	})
	defer tx.Close()

	tk := newTask("a")
	tx.Track(tk)

	waitDone(t, tk)
	assert.Equal(t, task.StateSent, tk.State())
	assert.Equal(t, int32(2), requests.Load())
}

func TestPermanentFailureFailsTasks(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	delegate := &recordingDelegate{}
	tx := transmit.New(transmit.Config{
		Endpoint:  srv.URL,
		BatchSize: 1,
		Retry: trkerrors.RetryConfig{
			MaxAttempts:    5,
			InitialBackoff: time.Millisecond,
		},
	})
	defer tx.Close()
	tx.SetDelegate(delegate)

	tk := newTask("a")
	tx.Track(tk)

	waitDone(t, tk)
	assert.Equal(t, task.StateFailed, tk.State())
	require.Error(t, tk.Err())
	// Permanent rejections are not retried.
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, 1, delegate.failedCount())
	assert.Equal(t, 0, delegate.completedCount())
}

func TestDelegateNotifiedOnCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	delegate := &recordingDelegate{}
	tx := transmit.New(transmit.Config{
		Endpoint:  srv.URL,
		BatchSize: 1,
		Retry:     trkerrors.NoRetry,
	})
	defer tx.Close()
	tx.SetDelegate(delegate)

	tk := newTask("a")
	tx.Track(tk)

	waitDone(t, tk)
	assert.Eventually(t, func() bool {
		return delegate.completedCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDefaultDelegatePickedUpAtConstruction(t *testing.T) {
	delegate := &recordingDelegate{}
	transmit.SetDefaultDelegate(delegate)
	t.Cleanup(func() { transmit.SetDefaultDelegate(nil) })

	tx := transmit.New(transmit.Config{Endpoint: "http://localhost:0"})
	defer tx.Close()

	assert.Equal(t, transmit.Delegate(delegate), tx.Delegate())
}

func TestQueueFullDropsWithoutBlocking(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tx := transmit.New(transmit.Config{
		Endpoint:      srv.URL,
		QueueSize:     1,
		BatchSize:     1,
		FlushInterval: time.Hour,
		Retry:         trkerrors.NoRetry,
	})
	defer tx.Close()
	// Unblock the server before Close waits on the worker.
	defer close(block)

	// First task occupies the worker (blocked on the server), the second
	// fills the queue; later tasks must fail fast, not block.
	tx.Track(newTask("a"))
	tx.Track(newTask("b"))

	var overflow *task.Task
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 8; i++ {
			tk := newTask("overflow")
			tx.Track(tk)
			if tk.State() == task.StateFailed {
				overflow = tk
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Track blocked on a full queue")
	}

	require.NotNil(t, overflow, "expected at least one dropped task")
	assert.ErrorIs(t, overflow.Err(), trkerrors.ErrQueueFull)
}

func TestFailedBatchIsSpooledAndReplayed(t *testing.T) {
	var healthy atomic.Bool
	var delivered atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := spool.NewMemoryStore()
	tx := transmit.New(transmit.Config{
		Endpoint:      srv.URL,
		BatchSize:     1,
		FlushInterval: 20 * time.Millisecond,
		Retry:         trkerrors.NoRetry,
		Spool:         store,
	})
	defer tx.Close()

	tk := newTask("a")
	tx.Track(tk)
	waitDone(t, tk)
	require.Equal(t, task.StateFailed, tk.State())

	n, err := store.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n, "expected failed batch spooled")

	// Endpoint recovers; the next ticks replay the spool.
	healthy.Store(true)
	assert.Eventually(t, func() bool {
		n, err := store.Len()
		return err == nil && n == 0
	}, 5*time.Second, 10*time.Millisecond, "expected spool drained after recovery")
	assert.GreaterOrEqual(t, delivered.Load(), int32(1))
}

func TestConcurrentTrackAndClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Track and Close race freely; no iteration may panic, and every task
	// must still reach a terminal state.
	for i := 0; i < 25; i++ {
		tx := transmit.New(transmit.Config{
			Endpoint:  srv.URL,
			QueueSize: 4,
			BatchSize: 2,
			Retry:     trkerrors.NoRetry,
		})

		var mu sync.Mutex
		var tasks []*task.Task
		start := make(chan struct{})

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 16; j++ {
					tk := newTask("race")
					tx.Track(tk)
					mu.Lock()
					tasks = append(tasks, tk)
					mu.Unlock()
				}
			}()
		}

		close(start)
		require.NoError(t, tx.Close())
		wg.Wait()

		for _, tk := range tasks {
			waitDone(t, tk)
		}
	}
}

func TestPermanentlyRejectedSpoolBatchIsDropped(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	store := spool.NewMemoryStore()
	_, err := store.Save([]byte(`{"events":[]}`))
	require.NoError(t, err)
	_, err = store.Save([]byte(`{"events":[]}`))
	require.NoError(t, err)

	tx := transmit.New(transmit.Config{
		Endpoint:      srv.URL,
		FlushInterval: 10 * time.Millisecond,
		Retry:         trkerrors.NoRetry,
		Spool:         store,
	})
	defer tx.Close()

	// Both batches are rejected outright; neither may wedge the spool.
	assert.Eventually(t, func() bool {
		n, err := store.Len()
		return err == nil && n == 0
	}, 5*time.Second, 10*time.Millisecond, "expected rejected batches deleted from the spool")
	assert.GreaterOrEqual(t, requests.Load(), int32(2))
}

func TestTransientlyFailingSpoolBatchStaysSpooled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := spool.NewMemoryStore()
	_, err := store.Save([]byte(`{"events":[]}`))
	require.NoError(t, err)

	tx := transmit.New(transmit.Config{
		Endpoint:      srv.URL,
		FlushInterval: 10 * time.Millisecond,
		Retry:         trkerrors.NoRetry,
		Spool:         store,
	})
	defer tx.Close()

	time.Sleep(100 * time.Millisecond)
	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "transient failures must keep the batch spooled")
}

func TestCloseDrainsQueue(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tx := transmit.New(transmit.Config{
		Endpoint:      srv.URL,
		BatchSize:     100,
		FlushInterval: time.Hour,
		Retry:         trkerrors.NoRetry,
	})

	tasks := make([]*task.Task, 5)
	for i := range tasks {
		tasks[i] = newTask("a")
		tx.Track(tasks[i])
	}

	require.NoError(t, tx.Close())

	for _, tk := range tasks {
		assert.Equal(t, task.StateSent, tk.State())
	}
	assert.GreaterOrEqual(t, received.Load(), int32(1))
}

func TestTrackAfterCloseFailsTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tx := transmit.New(transmit.Config{Endpoint: srv.URL})
	require.NoError(t, tx.Close())

	tk := newTask("a")
	tx.Track(tk)

	assert.Equal(t, task.StateFailed, tk.State())
	assert.ErrorIs(t, tk.Err(), trkerrors.ErrClosed)
}
