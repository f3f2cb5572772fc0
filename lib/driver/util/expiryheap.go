// Package util
//
// This file provides a deadline-ordered priority queue used by the
// in-memory driver's expiry sweeper.
//
// The implementation combines a binary min-heap with a hash map so the
// sweeper gets both efficient deadline-ordered access and O(1) key-based
// lookups:
//
//   - O(log n) for Push, Pop and deadline updates
//   - O(1) for existence checks
//   - O(log n) for key-based removal
//
// Note: this implementation is not thread-safe; callers must apply
// external synchronization.
package util

import "container/heap"

// item pairs a key with its expiry deadline
type item struct {
	Key      string // The stored key
	Deadline int64  // Expiry deadline (unix nanoseconds)
	index    int    // Index in the heap, maintained by heap package
}

// ExpiryHeap implements a deadline-ordered priority queue
// with both heap operations and key-based access
type ExpiryHeap struct {
	items    []*item
	itemsMap map[string]*item // Map for O(1) access by key
}

// NewExpiryHeap creates a new expiry queue
func NewExpiryHeap() *ExpiryHeap {
	return &ExpiryHeap{
		items:    make([]*item, 0),
		itemsMap: make(map[string]*item),
	}
}

// Len returns the number of items in the queue (part of heap.Interface)
func (h *ExpiryHeap) Len() int { return len(h.items) }

// Less compares items by deadline (part of heap.Interface)
func (h *ExpiryHeap) Less(i, j int) bool {
	return h.items[i].Deadline < h.items[j].Deadline
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (h *ExpiryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (h *ExpiryHeap) Push(x interface{}) {
	n := len(h.items)
	it := x.(*item)
	it.index = n
	h.items = append(h.items, it)
	h.itemsMap[it.Key] = it
}

// Pop removes and returns the item with the earliest deadline (part of heap.Interface)
func (h *ExpiryHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	it.index = -1   // For safety
	h.items = old[:n-1]
	delete(h.itemsMap, it.Key)
	return it
}

// Add inserts a key with the given deadline or updates the existing one
func (h *ExpiryHeap) Add(key string, deadline int64) {
	if it, exists := h.itemsMap[key]; exists {
		it.Deadline = deadline
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &item{Key: key, Deadline: deadline})
}

// Remove removes a key from the queue
func (h *ExpiryHeap) Remove(key string) bool {
	it, exists := h.itemsMap[key]
	if !exists {
		return false
	}
	heap.Remove(h, it.index)
	return true
}

// PopExpired removes and returns all keys whose deadline is at or before now
func (h *ExpiryHeap) PopExpired(now int64) []string {
	var expired []string
	for len(h.items) > 0 && h.items[0].Deadline <= now {
		it := heap.Pop(h).(*item)
		expired = append(expired, it.Key)
	}
	return expired
}

// Peek returns the earliest deadline without removing anything
func (h *ExpiryHeap) Peek() (key string, deadline int64, ok bool) {
	if len(h.items) == 0 {
		return "", 0, false
	}
	return h.items[0].Key, h.items[0].Deadline, true
}

// Contains checks if a key is scheduled
func (h *ExpiryHeap) Contains(key string) bool {
	_, exists := h.itemsMap[key]
	return exists
}
