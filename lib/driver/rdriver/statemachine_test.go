package rdriver

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/memdriver"
	"github.com/ValentinKolb/dPS/lib/driver/rdriver/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// The state machine is tested directly, without a NodeHost: Update and
// Lookup are plain method calls on a IConcurrentStateMachine.

func newTestStateMachine(t *testing.T) *KVStateMachine {
	t.Helper()
	fsm := CreateStateMachineFactory(&memdriver.Options{
		SweepInterval: 10 * time.Millisecond,
	})(1, 1).(*KVStateMachine)
	t.Cleanup(func() { _ = fsm.Close() })
	return fsm
}

// applyOne pushes a single command through Update and returns its result
func applyOne(t *testing.T, fsm *KVStateMachine, cmd internal.Command) sm.Result {
	t.Helper()
	entries, err := fsm.Update([]sm.Entry{{Index: 1, Cmd: cmd.Serialize()}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return entries[0].Result
}

func lookupGet(t *testing.T, fsm *KVStateMachine, key string) internal.QueryResult {
	t.Helper()
	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Key: key})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	return res.(internal.QueryResult)
}

func TestStateMachineSetAndGet(t *testing.T) {
	fsm := newTestStateMachine(t)

	result := applyOne(t, fsm, internal.Command{Type: internal.CommandTSet, Key: "k", Value: []byte("v")})
	if result.Value != internal.ResultOK {
		t.Fatalf("Set rejected: %s", result.Data)
	}

	res := lookupGet(t, fsm, "k")
	if !res.Ok || !bytes.Equal(res.Value, []byte("v")) {
		t.Errorf("expected v, got ok=%v value=%q", res.Ok, res.Value)
	}

	res = lookupGet(t, fsm, "missing")
	if res.Ok {
		t.Error("expected missing key to report ok=false")
	}
}

func TestStateMachineAbsoluteDeadlines(t *testing.T) {
	fsm := newTestStateMachine(t)

	// a deadline in the past must be applied verbatim, the entry is
	// then already expired on read
	past := time.Now().Add(-time.Second).UnixNano()
	result := applyOne(t, fsm, internal.Command{Type: internal.CommandTSetXAt, Key: "old", Arg: past, Value: []byte("v")})
	if result.Value != internal.ResultOK {
		t.Fatalf("SetXAt rejected: %s", result.Data)
	}
	if res := lookupGet(t, fsm, "old"); res.Ok {
		t.Error("expected entry with past deadline to be expired")
	}

	future := time.Now().Add(time.Minute).UnixNano()
	applyOne(t, fsm, internal.Command{Type: internal.CommandTSetXAt, Key: "new", Arg: future, Value: []byte("v")})
	if res := lookupGet(t, fsm, "new"); !res.Ok {
		t.Error("expected entry with future deadline to be live")
	}
}

func TestStateMachineConditionalInsert(t *testing.T) {
	fsm := newTestStateMachine(t)

	cmd := internal.Command{Type: internal.CommandTSetIfAbsentAt, Key: "lock", Value: []byte("1")}

	result := applyOne(t, fsm, cmd)
	if result.Value != internal.ResultOK || !bytes.Equal(result.Data, []byte{1}) {
		t.Fatalf("expected first insert to win, got %v %v", result.Value, result.Data)
	}

	result = applyOne(t, fsm, cmd)
	if result.Value != internal.ResultOK || !bytes.Equal(result.Data, []byte{0}) {
		t.Fatalf("expected second insert to lose, got %v %v", result.Value, result.Data)
	}
}

func TestStateMachineIncrement(t *testing.T) {
	fsm := newTestStateMachine(t)

	result := applyOne(t, fsm, internal.Command{Type: internal.CommandTIncrement, Key: "c", Arg: 5})
	if result.Value != internal.ResultOK {
		t.Fatalf("Increment rejected: %s", result.Data)
	}
	if got := int64(binary.BigEndian.Uint64(result.Data)); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}

	result = applyOne(t, fsm, internal.Command{Type: internal.CommandTIncrement, Key: "c", Arg: -7})
	if got := int64(binary.BigEndian.Uint64(result.Data)); got != -2 {
		t.Errorf("expected -2, got %d", got)
	}
}

func TestStateMachineHashOperations(t *testing.T) {
	fsm := newTestStateMachine(t)

	result := applyOne(t, fsm, internal.Command{Type: internal.CommandTHSet, Key: "h", Field: "f1", Value: []byte("v1")})
	if result.Value != internal.ResultOK || !bytes.Equal(result.Data, []byte{1}) {
		t.Fatalf("expected field creation, got %v %v", result.Value, result.Data)
	}
	applyOne(t, fsm, internal.Command{Type: internal.CommandTHSet, Key: "h", Field: "f2", Value: []byte("v2")})

	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTHLen, Key: "h"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if res.(int64) != 2 {
		t.Errorf("expected 2 fields, got %d", res.(int64))
	}

	result = applyOne(t, fsm, internal.Command{
		Type:  internal.CommandTHDelete,
		Key:   "h",
		Value: internal.EncodeFieldList([]string{"f1", "absent"}),
	})
	if result.Value != internal.ResultOK {
		t.Fatalf("HDelete rejected: %s", result.Data)
	}
	if removed := int64(binary.BigEndian.Uint64(result.Data)); removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
}

func TestStateMachineRejectsGarbage(t *testing.T) {
	fsm := newTestStateMachine(t)

	entries, err := fsm.Update([]sm.Entry{
		{Index: 1, Cmd: nil},
		{Index: 2, Cmd: []byte{0xff, 0x01}},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	for i, e := range entries {
		if e.Result.Value != internal.ResultErr {
			t.Errorf("entry %d: expected rejection, got %v", i, e.Result.Value)
		}
	}
}

func TestStateMachineSnapshotRoundTrip(t *testing.T) {
	fsm := newTestStateMachine(t)

	applyOne(t, fsm, internal.Command{Type: internal.CommandTSet, Key: "k", Value: []byte("v")})
	applyOne(t, fsm, internal.Command{Type: internal.CommandTHSet, Key: "h", Field: "f", Value: []byte("hv")})

	var buf bytes.Buffer
	if err := fsm.SaveSnapshot(nil, &buf, nil, nil); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	restored := newTestStateMachine(t)
	if err := restored.RecoverFromSnapshot(&buf, nil, nil); err != nil {
		t.Fatalf("RecoverFromSnapshot failed: %v", err)
	}

	if res := lookupGet(t, restored, "k"); !res.Ok || !bytes.Equal(res.Value, []byte("v")) {
		t.Errorf("expected restored value v, got ok=%v value=%q", res.Ok, res.Value)
	}
	res, err := restored.Lookup(internal.Query{Type: internal.QueryTHGet, Key: "h", Field: "f"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if qr := res.(internal.QueryResult); !qr.Ok || !bytes.Equal(qr.Value, []byte("hv")) {
		t.Errorf("expected restored hash field hv, got ok=%v value=%q", qr.Ok, qr.Value)
	}
}

func TestStateMachineInfoLookup(t *testing.T) {
	fsm := newTestStateMachine(t)

	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTInfo})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	info := res.(driver.DriverInfo)
	if info.DriverType != driver.ImplMem {
		t.Errorf("expected applied state to report mem, got %s", info.DriverType)
	}
}
