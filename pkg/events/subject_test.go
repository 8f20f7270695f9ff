package events

import (
	"testing"
	"time"
)

func TestSubjectSubscribeUnsubscribe(t *testing.T) {
	s := NewSubject[string]()

	sub1 := s.Subscribe(func(string) {})
	sub2 := s.Subscribe(func(string) {})

	if s.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", s.Count())
	}

	sub1.Unsubscribe()
	if s.Count() != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", s.Count())
	}

	sub1.Unsubscribe()
	if s.Count() != 1 {
		t.Fatalf("expected repeated unsubscribe to be a no-op, got %d", s.Count())
	}

	sub2.Unsubscribe()
	if s.Count() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", s.Count())
	}
}

func TestSubjectPublishOrder(t *testing.T) {
	s := NewSubject[int]()

	var got []string
	s.Subscribe(func(v int) { got = append(got, "first") })
	s.Subscribe(func(v int) { got = append(got, "second") })

	s.Publish(1)
	s.Publish(2)

	want := []string{"first", "second", "first", "second"}
	if len(got) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivery %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSubjectUnsubscribedReceivesNothing(t *testing.T) {
	s := NewSubject[int]()
	calls := 0
	sub := s.Subscribe(func(int) { calls++ })
	sub.Unsubscribe()

	s.Publish(42)
	if calls != 0 {
		t.Errorf("expected no deliveries after unsubscribe, got %d", calls)
	}
}

func TestZeroValueSubject(t *testing.T) {
	var s Subject[string]
	var got string
	s.Subscribe(func(v string) { got = v })
	s.Publish("ok")
	if got != "ok" {
		t.Errorf("expected zero-value subject to deliver, got %q", got)
	}
}

func TestSubjectChan(t *testing.T) {
	s := NewSubject[string]()
	ch, cancel := s.Chan(4)
	defer cancel()

	s.Publish("/test/file.txt")

	select {
	case received := <-ch:
		if received != "/test/file.txt" {
			t.Errorf("expected /test/file.txt, got %s", received)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubjectChanDropsForSlowConsumer(t *testing.T) {
	s := NewSubject[int]()
	ch, cancel := s.Chan(64)

	for i := 0; i < 100; i++ {
		s.Publish(i)
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
	if count != 64 {
		t.Errorf("expected 64 buffered events, got %d", count)
	}

	cancel()
	cancel()
	if s.Count() != 0 {
		t.Errorf("expected cancel to unsubscribe, got %d subscribers", s.Count())
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
	s.Publish(1)
}
