package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glowstack/dermassist/routing"
)

func turn(query string) Turn {
	return Turn{
		Query:     query,
		Intent:    routing.IntentGeneral,
		Answer:    "answer to " + query,
		AgentUsed: "general-knowledge",
		Timestamp: time.Now().UTC(),
	}
}

func TestMemoryReadEmptySession(t *testing.T) {
	m := NewMemory()

	turns, err := m.Read(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if turns != nil {
		t.Errorf("expected nil for an unknown session, got %v", turns)
	}
}

func TestMemoryAppendPreservesOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := m.Append(ctx, "sess-1", turn(fmt.Sprintf("q%d", i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	turns, err := m.Read(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	for i, tr := range turns {
		if want := fmt.Sprintf("q%d", i); tr.Query != want {
			t.Errorf("turn %d query = %q, want %q", i, tr.Query, want)
		}
	}
}

func TestMemorySessionIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Append(ctx, "sess-a", turn("a"))
	_ = m.Append(ctx, "sess-b", turn("b"))

	turns, _ := m.Read(ctx, "sess-a")
	if len(turns) != 1 || turns[0].Query != "a" {
		t.Errorf("session a saw foreign turns: %v", turns)
	}
}

func TestMemoryReadReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Append(ctx, "sess-1", turn("original"))

	turns, _ := m.Read(ctx, "sess-1")
	turns[0].Query = "mutated"

	fresh, _ := m.Read(ctx, "sess-1")
	if fresh[0].Query != "original" {
		t.Errorf("mutating a read result leaked into the store")
	}
}

func TestMemoryConcurrentAppends(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = m.Append(ctx, "sess-1", turn(fmt.Sprintf("q%d", n)))
		}(i)
	}
	wg.Wait()

	turns, _ := m.Read(ctx, "sess-1")
	if len(turns) != 50 {
		t.Errorf("expected 50 turns after concurrent appends, got %d", len(turns))
	}
}

func TestMemorySessions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Append(ctx, "sess-a", turn("a"))
	_ = m.Append(ctx, "sess-b", turn("b"))

	sessions := m.Sessions()
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}
