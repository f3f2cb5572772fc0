package util

import (
	"fmt"
	"testing"
)

func TestExpiryHeapOrdering(t *testing.T) {
	h := NewExpiryHeap()

	h.Add("c", 30)
	h.Add("a", 10)
	h.Add("b", 20)

	key, deadline, ok := h.Peek()
	if !ok || key != "a" || deadline != 10 {
		t.Errorf("Expected earliest deadline first, got %s at %d (ok=%t)", key, deadline, ok)
	}

	expired := h.PopExpired(20)
	if len(expired) != 2 || expired[0] != "a" || expired[1] != "b" {
		t.Errorf("Expected [a b], got %v", expired)
	}
	if h.Len() != 1 {
		t.Errorf("Expected 1 item left, got %d", h.Len())
	}
}

func TestExpiryHeapUpdateAndRemove(t *testing.T) {
	h := NewExpiryHeap()

	h.Add("a", 10)
	h.Add("b", 20)

	// updating must reorder
	h.Add("b", 5)
	key, _, _ := h.Peek()
	if key != "b" {
		t.Errorf("Expected updated item to move to the front, got %s", key)
	}

	if !h.Remove("b") {
		t.Errorf("Expected Remove of present key to succeed")
	}
	if h.Remove("b") {
		t.Errorf("Expected Remove of absent key to fail")
	}
	if h.Contains("b") {
		t.Errorf("Expected removed key to be gone")
	}

	expired := h.PopExpired(100)
	if len(expired) != 1 || expired[0] != "a" {
		t.Errorf("Expected [a], got %v", expired)
	}
}

func TestExpiryHeapManyItems(t *testing.T) {
	h := NewExpiryHeap()

	for i := 999; i >= 0; i-- {
		h.Add(fmt.Sprintf("key-%d", i), int64(i))
	}

	expired := h.PopExpired(999)
	if len(expired) != 1000 {
		t.Fatalf("Expected all 1000 items, got %d", len(expired))
	}
	for i, key := range expired {
		if key != fmt.Sprintf("key-%d", i) {
			t.Fatalf("Expected deadline order, item %d is %s", i, key)
		}
	}
}

func TestHash64Deterministic(t *testing.T) {
	inputs := []string{"", "a", "store-name", "MQ==", "0MQ=="}
	for _, in := range inputs {
		first := Hash64(in)
		for i := 0; i < 10; i++ {
			if got := Hash64(in); got != first {
				t.Errorf("Hash64(%q) not deterministic: %d then %d", in, first, got)
			}
		}
	}

	if Hash64("a") == Hash64("b") {
		t.Errorf("Distinct short inputs should not collide")
	}
}

func TestSeededHashVariesWithSeed(t *testing.T) {
	if SeededHash("key", 1) == SeededHash("key", 2) {
		t.Errorf("Expected different seeds to produce different hashes")
	}
	if SeededHash("key", 7) != SeededHash("key", 7) {
		t.Errorf("Expected identical seeds to produce identical hashes")
	}
}
