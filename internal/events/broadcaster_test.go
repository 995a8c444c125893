package events

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	id, ch := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", b.SubscriberCount())
	}

	b.Unsubscribe(id)
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	default:
		t.Error("channel should be closed and readable")
	}

	// unknown ids are ignored
	b.Unsubscribe(id)
}

func TestBroadcaster_Broadcast(t *testing.T) {
	b := NewBroadcaster()

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	b.Broadcast(LoadEvent{MaxRows: 100, State: StateLoaded, Rows: 42})

	select {
	case received := <-ch:
		if received.State != StateLoaded || received.Rows != 42 {
			t.Errorf("unexpected event %+v", received)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for broadcast")
	}
}

func TestBroadcaster_ConcurrentSubscribeBroadcast(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, ch := b.Subscribe()
			done := make(chan struct{})
			go func() {
				defer close(done)
				for range ch {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			b.Unsubscribe(id)
			<-done
		}()
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Broadcast(LoadEvent{MaxRows: n, State: StateLoading})
		}(i)
	}

	wg.Wait()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()

	var channels []<-chan LoadEvent
	for i := 0; i < 5; i++ {
		_, ch := b.Subscribe()
		channels = append(channels, ch)
	}

	b.Close()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", b.SubscriberCount())
	}

	for i, ch := range channels {
		select {
		case _, ok := <-ch:
			if ok {
				t.Errorf("channel %d should be closed", i)
			}
		default:
			t.Errorf("channel %d should be closed and readable", i)
		}
	}
}

func TestBroadcaster_SlowSubscriber(t *testing.T) {
	b := NewBroadcaster()

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	for i := 0; i < subscriberBuffer+1; i++ {
		b.Broadcast(LoadEvent{MaxRows: i, State: StateLoading})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			goto done
		}
	}
done:

	if count != subscriberBuffer {
		t.Errorf("expected %d buffered events, got %d", subscriberBuffer, count)
	}
}

func TestBroadcaster_LateSubscriberGetsLatestPerRowLimit(t *testing.T) {
	b := NewBroadcaster()

	b.Broadcast(LoadEvent{MaxRows: 500, State: StateLoading})
	b.Broadcast(LoadEvent{MaxRows: 100, State: StateLoading})
	b.Broadcast(LoadEvent{MaxRows: 100, State: StateLoaded, Rows: 42})

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	var got []LoadEvent
	for len(got) < 2 {
		select {
		case ev := <-ch:
			got = append(got, ev)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("expected 2 replayed events, got %d", len(got))
		}
	}

	if got[0].MaxRows != 100 || got[0].State != StateLoaded || got[0].Rows != 42 {
		t.Errorf("unexpected first replayed event %+v", got[0])
	}
	if got[1].MaxRows != 500 || got[1].State != StateLoading {
		t.Errorf("unexpected second replayed event %+v", got[1])
	}

	select {
	case ev := <-ch:
		t.Errorf("superseded events must not be replayed, got %+v", ev)
	default:
	}
}

func TestBroadcaster_Latest(t *testing.T) {
	b := NewBroadcaster()
	if len(b.Latest()) != 0 {
		t.Errorf("expected no events, got %v", b.Latest())
	}

	b.Broadcast(LoadEvent{MaxRows: 10, State: StateLoading})
	b.Broadcast(LoadEvent{MaxRows: 10, State: StateFailed, Error: "fetch failure"})

	latest := b.Latest()
	if len(latest) != 1 || latest[0].State != StateFailed {
		t.Errorf("expected only the failed event, got %v", latest)
	}
}
