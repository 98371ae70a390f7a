package queue

import (
	"errors"
	"testing"

	"eventwire/pkg/errs"
	"eventwire/pkg/event"
)

func TestTryPushWithinCapacity(t *testing.T) {
	q := New[Item]("ping", 2)
	ev, _ := event.Make("ping")
	if !q.TryPush(Item{Event: ev}) {
		t.Fatal("push within capacity should succeed")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
}

func TestTryPushDropsNewestWhenFull(t *testing.T) {
	q := New[Item]("ping", 1)
	first, _ := event.Make("ping")
	q.TryPush(Item{Event: first})

	second, _ := event.Make("ping")
	if q.TryPush(Item{Event: second}) {
		t.Fatal("push into a full queue should fail (drop-newest)")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1 (the original item survives)", q.Len())
	}

	got := <-q.C()
	if got.Event.Packet != first.Packet {
		t.Fatalf("unexpected surviving event: %q is not the first item", got.Event.Name)
	}
}

func TestLinkTableDetectsCollision(t *testing.T) {
	lt := NewLinkTable()
	a := New[Item]("chat", 8)
	b := New[Item]("chat", 8)

	if err := lt.Link("chat", a); err != nil {
		t.Fatalf("first link should succeed: %v", err)
	}
	err := lt.Link("chat", b)
	if !errors.Is(err, errs.ErrEventCollision) {
		t.Fatalf("expected collision error, got %v", err)
	}
}

func TestLinkTableLookup(t *testing.T) {
	lt := NewLinkTable()
	q := New[Item]("chat", 8)
	lt.Link("chat", q)

	got, ok := lt.Lookup("chat")
	if !ok || got != q {
		t.Fatal("lookup should return the linked queue")
	}
	if _, ok := lt.Lookup("missing"); ok {
		t.Fatal("lookup of unlinked name should report false")
	}
}

func TestLinkTableQueuesDeduplicates(t *testing.T) {
	lt := NewLinkTable()
	q := New[Item]("shared", 8)
	lt.Link("a", q)
	lt.Link("b", q)

	queues := lt.Queues()
	if len(queues) != 1 {
		t.Fatalf("queues = %d, want 1 distinct queue", len(queues))
	}
}
