package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/memdriver"
	"github.com/ValentinKolb/dPS/rpc/common"
)

// newTestConn creates an in-memory driver connection for adapter tests
func newTestConn(t *testing.T) driver.IConn {
	t.Helper()
	conn := memdriver.New(nil)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestAdapterKeyOperations(t *testing.T) {
	adapter := NewDriverServerAdapter()
	conn := newTestConn(t)

	// Set
	resp := adapter.Handle(common.NewSetRequest("k1", []byte("v1")), conn)
	if resp.Err != "" {
		t.Fatalf("set failed: %s", resp.Err)
	}

	// Exists
	resp = adapter.Handle(common.NewExistsRequest("k1"), conn)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("expected k1 to exist, got %+v", resp)
	}

	// Get
	resp = adapter.Handle(common.NewGetRequest("k1"), conn)
	if !resp.Ok || string(resp.Value) != "v1" {
		t.Fatalf("expected v1, got %+v", resp)
	}

	// Increment
	resp = adapter.Handle(common.NewIncrementRequest("ctr", 5), conn)
	if resp.Err != "" || resp.Count != 5 {
		t.Fatalf("expected counter 5, got %+v", resp)
	}

	// Delete
	resp = adapter.Handle(common.NewDeleteRequest("k1"), conn)
	if resp.Err != "" {
		t.Fatalf("delete failed: %s", resp.Err)
	}
	resp = adapter.Handle(common.NewExistsRequest("k1"), conn)
	if resp.Ok {
		t.Fatal("expected k1 to be deleted")
	}
}

func TestAdapterConditionalInsert(t *testing.T) {
	adapter := NewDriverServerAdapter()
	conn := newTestConn(t)

	resp := adapter.Handle(common.NewSetIfAbsentRequest("lock", []byte("a"), 0), conn)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("expected first insert to succeed, got %+v", resp)
	}

	resp = adapter.Handle(common.NewSetIfAbsentRequest("lock", []byte("b"), 0), conn)
	if resp.Err != "" || resp.Ok {
		t.Fatalf("expected second insert to fail, got %+v", resp)
	}
}

func TestAdapterTTLTransmission(t *testing.T) {
	adapter := NewDriverServerAdapter()
	conn := newTestConn(t)

	// The message carries the ttl in nanoseconds
	ttl := uint64(50 * time.Millisecond)
	resp := adapter.Handle(common.NewSetXRequest("fleeting", []byte("x"), ttl), conn)
	if resp.Err != "" {
		t.Fatalf("setX failed: %s", resp.Err)
	}

	resp = adapter.Handle(common.NewExistsRequest("fleeting"), conn)
	if !resp.Ok {
		t.Fatal("expected key to exist right after setX")
	}

	time.Sleep(100 * time.Millisecond)

	resp = adapter.Handle(common.NewExistsRequest("fleeting"), conn)
	if resp.Ok {
		t.Fatal("expected key to be expired")
	}
}

func TestAdapterHashOperations(t *testing.T) {
	adapter := NewDriverServerAdapter()
	conn := newTestConn(t)

	resp := adapter.Handle(common.NewHSetRequest("h", "f1", []byte("v1")), conn)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("expected field to be created, got %+v", resp)
	}
	adapter.Handle(common.NewHSetRequest("h", "f2", []byte("v2")), conn)

	resp = adapter.Handle(common.NewHGetRequest("h", "f1"), conn)
	if !resp.Ok || string(resp.Value) != "v1" {
		t.Fatalf("expected v1, got %+v", resp)
	}

	resp = adapter.Handle(common.NewHExistsRequest("h", "f2"), conn)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("expected field f2 to exist, got %+v", resp)
	}
	resp = adapter.Handle(common.NewHExistsRequest("h", "nope"), conn)
	if resp.Ok {
		t.Fatalf("expected missing field to not exist, got %+v", resp)
	}

	resp = adapter.Handle(common.NewHLenRequest("h"), conn)
	if resp.Count != 2 {
		t.Fatalf("expected 2 fields, got %d", resp.Count)
	}

	resp = adapter.Handle(common.NewHKeysRequest("h"), conn)
	if len(resp.Fields) != 2 {
		t.Fatalf("expected 2 field names, got %v", resp.Fields)
	}

	resp = adapter.Handle(common.NewHDeleteRequest("h", []string{"f1", "missing"}), conn)
	if resp.Count != 1 {
		t.Fatalf("expected 1 removed field, got %d", resp.Count)
	}
}

func TestAdapterInfoAndPing(t *testing.T) {
	adapter := NewDriverServerAdapter()
	conn := newTestConn(t)

	resp := adapter.Handle(common.NewPingRequest(), conn)
	if resp.Err != "" {
		t.Fatalf("ping failed: %s", resp.Err)
	}

	resp = adapter.Handle(common.NewInfoRequest(), conn)
	if resp.Err != "" {
		t.Fatalf("info failed: %s", resp.Err)
	}

	var info driver.DriverInfo
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		t.Fatalf("failed to decode info meta: %v", err)
	}
	if info.DriverType != driver.ImplMem {
		t.Errorf("expected mem driver, got %s", info.DriverType)
	}
}

func TestAdapterRejectsUnknownType(t *testing.T) {
	adapter := NewDriverServerAdapter()
	conn := newTestConn(t)

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTUnknown}, conn)
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("expected error response, got %+v", resp)
	}
}

func TestAdapterNilConnection(t *testing.T) {
	adapter := NewDriverServerAdapter()

	resp := adapter.Handle(common.NewPingRequest(), nil)
	if resp.MsgType != common.MsgTError {
		t.Fatalf("expected error response, got %+v", resp)
	}
}
