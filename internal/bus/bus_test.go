package bus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

// recv reads one payload with a deadline so a broken bus fails the test
// instead of hanging it.
func recv(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case payload, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before payload arrived")
		}
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestBus_FanOut(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := b.Subscribe(ctx, "USER_CREATED")
	second := b.Subscribe(ctx, "USER_CREATED")

	b.Publish("USER_CREATED", "hello")

	if got := recv(t, first); got != "hello" {
		t.Fatalf("first subscriber got %v, want hello", got)
	}
	if got := recv(t, second); got != "hello" {
		t.Fatalf("second subscriber got %v, want hello", got)
	}
}

func TestBus_NoReplayForLateSubscribers(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	early := b.Subscribe(ctx, "USER_CREATED")
	b.Publish("USER_CREATED", "before")

	if got := recv(t, early); got != "before" {
		t.Fatalf("early subscriber got %v, want before", got)
	}

	late := b.Subscribe(ctx, "USER_CREATED")
	b.Publish("USER_CREATED", "after")

	// The late subscriber must see only the payload published after it
	// attached.
	if got := recv(t, late); got != "after" {
		t.Fatalf("late subscriber got %v, want after", got)
	}
	if got := recv(t, early); got != "after" {
		t.Fatalf("early subscriber got %v, want after", got)
	}
}

func TestBus_OrderPreservedPerSubscriber(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "orders")

	const n = 100
	for i := 0; i < n; i++ {
		b.Publish("orders", i)
	}

	for i := 0; i < n; i++ {
		if got := recv(t, ch); got != i {
			t.Fatalf("payload %d out of order: got %v", i, got)
		}
	}
}

func TestBus_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The slow subscriber never reads; its queue just grows.
	_ = b.Subscribe(ctx, "USER_CREATED")
	fast := b.Subscribe(ctx, "USER_CREATED")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			b.Publish("USER_CREATED", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked by a slow subscriber")
	}

	for i := 0; i < 50; i++ {
		if got := recv(t, fast); got != i {
			t.Fatalf("fast subscriber payload %d: got %v", i, got)
		}
	}
}

func TestBus_TopicsAreIndependent(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	users := b.Subscribe(ctx, "USER_CREATED")
	other := b.Subscribe(ctx, "other")

	b.Publish("USER_CREATED", "user-event")

	if got := recv(t, users); got != "user-event" {
		t.Fatalf("got %v, want user-event", got)
	}

	select {
	case payload := <-other:
		t.Fatalf("subscriber on unrelated topic received %v", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_CancelDetachesSubscriber(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch := b.Subscribe(ctx, "USER_CREATED")
	cancel()

	// The channel closes once the pump observes cancellation.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after context cancellation")
		}
	}
}

func TestBus_PublishAfterDetachIsDropped(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch := b.Subscribe(ctx, "USER_CREATED")
	cancel()

	// Wait for the detach to land before publishing.
	for {
		if _, ok := <-ch; !ok {
			break
		}
	}

	// Must not panic or block.
	b.Publish("USER_CREATED", "dropped")
}

func TestBus_CloseStopsActiveSubscribers(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "USER_CREATED")
	b.Close()

	// The pump shuts down and closes the channel without the
	// subscriber's own context being cancelled.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after bus Close")
		}
	}
}

func TestBus_PublishAfterCloseDeliversNothing(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "USER_CREATED")
	b.Close()

	// Must not panic; the payload goes nowhere.
	b.Publish("USER_CREATED", "late")

	deadline := time.After(2 * time.Second)
	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			t.Fatalf("received %v published after Close", payload)
		case <-deadline:
			t.Fatal("channel not closed after bus Close")
		}
	}
}

func TestBus_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := newTestBus()
	b.Close()

	ch := b.Subscribe(context.Background(), "USER_CREATED")
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel from Subscribe after Close")
	}
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	b := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Publishers and subscribers racing on the same topic; the test
	// passes if nothing deadlocks or panics under the race detector.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish("churn", fmt.Sprintf("%d-%d", n, j))
			}
		}(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			subCtx, subCancel := context.WithCancel(ctx)
			ch := b.Subscribe(subCtx, "churn")
			for k := 0; k < 10; k++ {
				select {
				case <-ch:
				case <-time.After(10 * time.Millisecond):
				}
			}
			subCancel()
		}()
	}

	wg.Wait()
}
