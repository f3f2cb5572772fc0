package memdriver

import (
	"bytes"
	"testing"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/drivertest"
)

func TestMemDriverConformance(t *testing.T) {
	drivertest.RunConnTests(t, "memdriver", func() driver.IConn {
		return New(&Options{SweepInterval: 10 * time.Millisecond})
	})
}

func TestSaveLoad(t *testing.T) {
	src := New(nil)
	defer src.Close()

	if err := src.Set("plain", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := src.SetX("leased", []byte("v"), time.Hour); err != nil {
		t.Fatalf("SetX failed: %v", err)
	}
	if _, err := src.HSet("hash", "f1", []byte("hv1")); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if _, err := src.HSet("hash", "f2", []byte("hv2")); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}

	// an already expired entry must not survive the round trip
	if err := src.SetXAt("gone", []byte("v"), 1); err != nil {
		t.Fatalf("SetXAt failed: %v", err)
	}

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := New(nil)
	defer dst.Close()
	if err := dst.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	value, loaded, err := dst.Get("plain")
	if err != nil || !loaded || !bytes.Equal(value, []byte("value")) {
		t.Errorf("Expected plain value to survive, got %s (loaded=%t, err=%v)", value, loaded, err)
	}

	value, loaded, _ = dst.Get("leased")
	if !loaded || !bytes.Equal(value, []byte("v")) {
		t.Errorf("Expected leased value to survive")
	}

	value, loaded, _ = dst.HGet("hash", "f2")
	if !loaded || !bytes.Equal(value, []byte("hv2")) {
		t.Errorf("Expected hash field to survive, got %s (loaded=%t)", value, loaded)
	}

	ok, _ := dst.Exists("gone")
	if ok {
		t.Errorf("Expected expired entry to be dropped by Save")
	}
}

func TestRunCommand(t *testing.T) {
	s := New(nil)
	defer s.Close()

	out, err := s.RunCommand("ping")
	if err != nil || string(out) != "PONG" {
		t.Errorf("Expected PONG, got %s (err=%v)", out, err)
	}

	if _, err := s.RunCommand("set k v"); err != nil {
		t.Fatalf("set command failed: %v", err)
	}
	out, err = s.RunCommand("get k")
	if err != nil || string(out) != "v" {
		t.Errorf("Expected v, got %s (err=%v)", out, err)
	}

	out, err = s.RunCommand("incr counter 5")
	if err != nil || string(out) != "5" {
		t.Errorf("Expected 5, got %s (err=%v)", out, err)
	}

	if _, err := s.RunCommand("bogus"); err == nil {
		t.Errorf("Expected unknown command to fail")
	}
}

func TestContainerAdmin(t *testing.T) {
	s := New(nil)
	defer s.Close()

	// the store must satisfy the optional admin interface
	var admin driver.IContainerAdmin = s

	if err := admin.CreateContainer("c1"); err != nil {
		t.Fatalf("CreateContainer failed: %v", err)
	}
	if _, err := s.HSet("c1", "f", []byte("v")); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}

	size, err := admin.ContainerSize("c1")
	if err != nil || size != 1 {
		t.Errorf("Expected container size 1, got %d (err=%v)", size, err)
	}

	if err := admin.DeleteContainer("c1"); err != nil {
		t.Fatalf("DeleteContainer failed: %v", err)
	}
	size, _ = admin.ContainerSize("c1")
	if size != 0 {
		t.Errorf("Expected container size 0 after delete, got %d", size)
	}
}

func TestSweeperReclaimsExpired(t *testing.T) {
	s := New(&Options{SweepInterval: 10 * time.Millisecond})
	defer s.Close()

	if err := s.SetX("short", []byte("v"), 30*time.Millisecond); err != nil {
		t.Fatalf("SetX failed: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	// the sweeper must have removed the entry physically, not only logically
	if s.data.Size() != 0 {
		t.Errorf("Expected sweeper to reclaim expired entry, %d entries left", s.data.Size())
	}
}
