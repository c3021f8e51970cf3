package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInFlightTracker_Count(t *testing.T) {
	var tracker InFlightTracker
	steps := []struct {
		inc  bool
		want int64
	}{{true, 1}, {true, 2}, {false, 1}, {false, 0}}
	for i, s := range steps {
		if s.inc {
			tracker.Increment()
		} else {
			tracker.Decrement()
		}
		if got := tracker.Count(); got != s.want {
			t.Errorf("step %d: Count() = %d, want %d", i, got, s.want)
		}
	}
}

// TestInFlightTracker_WaitForZero verifies that a drain waiting on one prediction returns
// once it completes.
func TestInFlightTracker_WaitForZero(t *testing.T) {
	var tracker InFlightTracker
	tracker.Increment()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- tracker.WaitForZero(ctx, 2*time.Millisecond) }()

	time.Sleep(10 * time.Millisecond)
	tracker.Decrement()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("WaitForZero() error = %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("WaitForZero did not return after the count reached zero")
	}
}

func TestInFlightTracker_WaitForZero_Deadline(t *testing.T) {
	var tracker InFlightTracker
	tracker.Increment()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tracker.WaitForZero(ctx, 2*time.Millisecond); err != context.DeadlineExceeded {
		t.Errorf("WaitForZero() error = %v, want context.DeadlineExceeded", err)
	}
}

// TestMetricsMiddleware_TracksInFlight verifies that requests passing through the router are
// counted while the handler runs and released afterwards.
func TestMetricsMiddleware_TracksInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/predict", nil))
		close(done)
	}()

	<-entered
	if got := InFlightCount(); got != 1 {
		t.Errorf("InFlightCount() during request = %d, want 1", got)
	}
	close(release)
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := WaitForInFlight(ctx, 5*time.Millisecond); err != nil {
		t.Errorf("WaitForInFlight() error = %v", err)
	}
}
