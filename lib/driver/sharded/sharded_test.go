package sharded

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/drivertest"
	"github.com/ValentinKolb/dPS/lib/driver/memdriver"
)

func newRouter(t testing.TB, partitions int) driver.IConn {
	conns := make([]driver.IConn, partitions)
	for i := range conns {
		conns[i] = memdriver.New(nil)
	}
	r, err := New(conns)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestShardedConformance(t *testing.T) {
	drivertest.RunConnTests(t, "sharded", func() driver.IConn {
		return newRouter(t, 4)
	})
}

func TestRouteIsStable(t *testing.T) {
	for _, n := range []int{1, 2, 3, 8, 16} {
		for i := 0; i < 100; i++ {
			key := fmt.Sprintf("key-%d", i)
			first := Route(key, n)
			if first < 0 || first >= n {
				t.Fatalf("Route(%q, %d) = %d out of range", key, n, first)
			}
			for j := 0; j < 10; j++ {
				if got := Route(key, n); got != first {
					t.Errorf("Route(%q, %d) not stable: %d then %d", key, n, first, got)
				}
			}
		}
	}
}

func TestSingleConnectionShortCircuits(t *testing.T) {
	for i := 0; i < 1000; i++ {
		if got := Route(fmt.Sprintf("key-%d", i), 1); got != 0 {
			t.Fatalf("Route with one partition must always return 0, got %d", got)
		}
	}
}

func TestHashContainerStaysOnOnePartition(t *testing.T) {
	conns := []driver.IConn{memdriver.New(nil), memdriver.New(nil), memdriver.New(nil)}
	r, err := New(conns)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Close()

	container := "container-key"
	for i := 0; i < 50; i++ {
		field := fmt.Sprintf("field-%d", i)
		if _, err := r.HSet(container, field, []byte("v")); err != nil {
			t.Fatalf("HSet failed: %v", err)
		}
	}

	// all fields must be visible through one HLen, meaning they all
	// landed on the container's owning partition
	length, err := r.HLen(container)
	if err != nil {
		t.Fatalf("HLen failed: %v", err)
	}
	if length != 50 {
		t.Errorf("Expected all 50 fields on one partition, HLen = %d", length)
	}

	owner := conns[Route(container, len(conns))]
	ownerLen, _ := owner.HLen(container)
	if ownerLen != 50 {
		t.Errorf("Expected owning partition to hold 50 fields, got %d", ownerLen)
	}
}

func TestKeysAreDistributed(t *testing.T) {
	r := newRouter(t, 4).(*router)
	defer r.Close()

	for i := 0; i < 400; i++ {
		if err := r.Set(fmt.Sprintf("key-%d", i), []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	// with 400 keys over 4 partitions each partition should own some
	for i, c := range r.conns {
		info := c.GetInfo()
		meta := info.Metadata.(*struct {
			Keys              int `json:"keys"`
			ScheduledExpiries int `json:"scheduled_expiries"`
		})
		if meta.Keys == 0 {
			t.Errorf("Partition %d received no keys", i)
		}
	}
}
