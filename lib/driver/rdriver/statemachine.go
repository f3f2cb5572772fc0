package rdriver

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver/memdriver"
	"github.com/ValentinKolb/dPS/lib/driver/rdriver/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// KVStateMachine is a state machine implementation for Dragonboat RAFT.
// The applied state is an in-memory store instance; all expiring
// commands carry absolute deadlines so replicas converge regardless of
// when they apply an entry.
type KVStateMachine struct {
	replicaID uint64
	shardID   uint64
	store     *memdriver.Store
}

// CreateStateMachineFactory returns a function that can be used by dragonboat
// to create a new state machine for a node host.
func CreateStateMachineFactory(opts *memdriver.Options) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &KVStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			store:     memdriver.New(opts),
		}
	}
}

// Lookup handles read-only queries by mapping each Query operation to the
// corresponding store method.
func (fsm *KVStateMachine) Lookup(itf interface{}) (interface{}, error) {

	q, ok := itf.(internal.Query)
	if !ok {
		return nil, fmt.Errorf("invalid query type: %T", itf)
	}

	switch q.Type {
	case internal.QueryTExists:
		return fsm.store.Exists(q.Key)
	case internal.QueryTGet:
		value, loaded, err := fsm.store.Get(q.Key)
		if err != nil {
			return nil, err
		}
		return internal.QueryResult{Value: value, Ok: loaded}, nil
	case internal.QueryTHGet:
		value, loaded, err := fsm.store.HGet(q.Key, q.Field)
		if err != nil {
			return nil, err
		}
		return internal.QueryResult{Value: value, Ok: loaded}, nil
	case internal.QueryTHExists:
		return fsm.store.HExists(q.Key, q.Field)
	case internal.QueryTHLen:
		return fsm.store.HLen(q.Key)
	case internal.QueryTHKeys:
		return fsm.store.HKeys(q.Key)
	case internal.QueryTInfo:
		return fsm.store.GetInfo(), nil
	default:
		return nil, fmt.Errorf("unknown query operation: %d", q.Type)
	}
}

// Update handles write commands on the applied store.
// All write operations are serialized into []byte and are accessible via
// the entries struct.
func (fsm *KVStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		if len(e.Cmd) == 0 {
			entries[idx].Result = failure("empty command ignored")
			continue
		}

		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = failure(fmt.Sprintf("failed to deserialize command: %v", err))
			continue
		}

		entries[idx].Result = fsm.apply(cmd)
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("state machine batch of %d entries took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes a single decoded command against the store
func (fsm *KVStateMachine) apply(cmd internal.Command) sm.Result {
	switch cmd.Type {
	case internal.CommandTSet:
		if err := fsm.store.Set(cmd.Key, cmd.Value); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case internal.CommandTSetXAt:
		if err := fsm.store.SetXAt(cmd.Key, cmd.Value, cmd.Arg); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case internal.CommandTSetIfAbsentAt:
		inserted, err := fsm.store.SetIfAbsentAt(cmd.Key, cmd.Value, cmd.Arg)
		if err != nil {
			return failure(err.Error())
		}
		return success(boolPayload(inserted))

	case internal.CommandTDelete:
		if err := fsm.store.Delete(cmd.Key); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case internal.CommandTIncrement:
		value, err := fsm.store.Increment(cmd.Key, cmd.Arg)
		if err != nil {
			return failure(err.Error())
		}
		return success(int64Payload(value))

	case internal.CommandTExpireAt:
		found, err := fsm.store.ExpireAt(cmd.Key, cmd.Arg)
		if err != nil {
			return failure(err.Error())
		}
		return success(boolPayload(found))

	case internal.CommandTHSet:
		created, err := fsm.store.HSet(cmd.Key, cmd.Field, cmd.Value)
		if err != nil {
			return failure(err.Error())
		}
		return success(boolPayload(created))

	case internal.CommandTHDelete:
		fields, err := internal.DecodeFieldList(cmd.Value)
		if err != nil {
			return failure(err.Error())
		}
		removed, err := fsm.store.HDelete(cmd.Key, fields...)
		if err != nil {
			return failure(err.Error())
		}
		return success(int64Payload(removed))

	default:
		return failure(fmt.Sprintf("unknown command operation: %s", cmd.Type))
	}
}

// PrepareSnapshot is not used. We don't need to prepare anything since we
// use fuzzy snapshotting
func (fsm *KVStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot saves a fuzzy store snapshot to the writer
func (fsm *KVStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	return fsm.store.Save(writer)
}

// RecoverFromSnapshot restores the applied store from a snapshot.
func (fsm *KVStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	return fsm.store.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *KVStateMachine) Close() error {
	return fsm.store.Close()
}

// --------------------------------------------------------------------------
// Result Helpers
// --------------------------------------------------------------------------

func success(data []byte) sm.Result {
	return sm.Result{Value: internal.ResultOK, Data: data}
}

func failure(msg string) sm.Result {
	return sm.Result{Value: internal.ResultErr, Data: []byte(msg)}
}

func boolPayload(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func int64Payload(v int64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, uint64(v))
	return data
}
