package eventbus

import "testing"

func TestPublishSubscribe(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()
	b.Publish(42)
	if got := <-sub; got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestPublishNonBlocking(t *testing.T) {
	b := New[int]()
	b.Subscribe() // never drained
	for i := 0; i < 100; i++ {
		b.Publish(i) // must not block
	}
}

func TestUnsubscribeCloses(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Fatalf("channel not closed")
	}
}

func TestCloseAll(t *testing.T) {
	b := New[string]()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	b.Close()
	if _, ok := <-s1; ok {
		t.Fatalf("s1 not closed")
	}
	if _, ok := <-s2; ok {
		t.Fatalf("s2 not closed")
	}
	b.Publish("after close") // no panic
	if sub := b.Subscribe(); sub == nil {
		t.Fatalf("subscribe after close must return closed channel")
	}
}
