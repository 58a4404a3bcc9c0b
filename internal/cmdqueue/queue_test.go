package cmdqueue_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"piperun/internal/cmdqueue"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := cmdqueue.New()
	if q.HasNext() {
		t.Fatal("new queue should be empty")
	}
	if _, err := q.Next(); !errors.Is(err, cmdqueue.ErrEmpty) {
		t.Fatalf("Next on empty = %v, want ErrEmpty", err)
	}

	lines := []string{"reload_script /a.py", "run_script /b.py", "", "reload_addon tool"}
	for _, line := range lines {
		q.Push(line)
	}
	if q.Len() != len(lines) {
		t.Fatalf("Len = %d, want %d", q.Len(), len(lines))
	}

	for i, want := range lines {
		if !q.HasNext() {
			t.Fatalf("HasNext false at %d", i)
		}
		got, err := q.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Fatalf("Next[%d] = %q, want %q", i, got, want)
		}
	}
	if q.HasNext() || q.Len() != 0 {
		t.Fatal("queue should be empty after draining")
	}
}

func TestQueueInterleavedPushNext(t *testing.T) {
	q := cmdqueue.New()
	next := 0
	for i := 0; i < 500; i++ {
		q.Push(fmt.Sprint(i))
		if i%3 == 0 {
			got, err := q.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if got != fmt.Sprint(next) {
				t.Fatalf("Next = %q, want %d", got, next)
			}
			next++
		}
	}
	for q.HasNext() {
		got, _ := q.Next()
		if got != fmt.Sprint(next) {
			t.Fatalf("Next = %q, want %d", got, next)
		}
		next++
	}
	if next != 500 {
		t.Fatalf("consumed %d lines, want 500", next)
	}
}

func TestQueueDrain(t *testing.T) {
	q := cmdqueue.New()
	if got := q.Drain(); got != nil {
		t.Fatalf("Drain on empty = %v", got)
	}
	q.Push("a")
	q.Push("b")
	q.Push("c")
	_, _ = q.Next()

	got := q.Drain()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("Drain = %v", got)
	}
	if q.HasNext() {
		t.Fatal("queue should be empty after Drain")
	}
}

func TestQueueConcurrentProducerConsumer(t *testing.T) {
	const total = 2000
	q := cmdqueue.New()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Push(fmt.Sprint(i))
		}
	}()

	got := make([]string, 0, total)
	for len(got) < total {
		line, err := q.Next()
		if errors.Is(err, cmdqueue.ErrEmpty) {
			continue
		}
		got = append(got, line)
	}
	wg.Wait()

	for i, line := range got {
		if line != fmt.Sprint(i) {
			t.Fatalf("line %d = %q, order not preserved", i, line)
		}
	}
}
