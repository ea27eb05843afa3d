package thumbnail

import "testing"

func TestBusDropsWhenFull(t *testing.T) {
	b := newBus()
	ch, cancel := b.subscribe(1)
	defer cancel()

	b.publish(Event{Key: "a"})
	b.publish(Event{Key: "b"})

	ev := <-ch
	if ev.Key != "a" {
		t.Errorf("Key = %q, want a", ev.Key)
	}
	select {
	case ev := <-ch:
		t.Errorf("received dropped event %q", ev.Key)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := newBus()
	ch, cancel := b.subscribe(4)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	b.publish(Event{Key: "a"})
}

func TestBusClose(t *testing.T) {
	b := newBus()
	ch, cancel := b.subscribe(4)
	b.close()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after close")
	}
	b.publish(Event{Key: "a"})

	late, _ := b.subscribe(1)
	if _, ok := <-late; ok {
		t.Error("subscription after close is open")
	}
}

func TestEventKindString(t *testing.T) {
	if Loaded.String() != "loaded" || Failed.String() != "failed" {
		t.Errorf("String() = %q, %q", Loaded, Failed)
	}
}
