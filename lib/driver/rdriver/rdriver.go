package rdriver

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/rdriver/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	retries = 5
	log     = logger.GetLogger("rdriver")
)

// Conn implements driver.IConn on top of a raft replicated state
// machine. It encapsulates a Dragonboat NodeHost which is used to
// communicate with the state machine: writes go through the raft log
// via SyncPropose, reads through linearizable SyncRead.
type Conn struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// New creates a driver connection to a raft shard. The NodeHost stays
// owned by the caller; Close does not stop it.
func New(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) *Conn {
	cs := nh.GetNoOPSession(shardID)
	return &Conn{
		nh:      nh,
		shardID: shardID,
		cs:      cs,
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// write serializes a Command and sends it via SyncPropose.
// It returns the result payload of the state machine, or an error.
func (c *Conn) write(cmd internal.Command) ([]byte, error) {
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)

		res, err := c.nh.SyncPropose(ctx, c.cs, cmd.Serialize())
		cancel()

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: system busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(c.timeout / 10)
			continue
		}

		if err != nil {
			return nil, driver.NewConnectionError("proposal failed", err)
		}
		if res.Value != internal.ResultOK {
			return nil, driver.NewBackendError(string(res.Data), nil)
		}
		return res.Data, nil
	}
	return nil, driver.NewConnectionError("proposal timed out", nil)
}

// read is a generic helper that queries the state machine and attempts
// to convert the response into the expected type R.
//
// By default the linearizable SyncRead path is used. If linearizability
// is not required, the stale parameter can be set to true to use the
// faster StaleRead path.
//
// If the read fails due to a system busy error, the function retries.
func read[R any](c *Conn, q internal.Query, stale bool) (R, error) {
	var zero R
	for i := 0; i < retries; i++ {

		var res interface{}
		var err error

		if stale {
			res, err = c.nh.StaleRead(c.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			res, err = c.nh.SyncRead(ctx, c.shardID, q)
			cancel()
		}

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: system busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(c.timeout / 10)
			continue
		}

		if err != nil {
			return zero, driver.NewConnectionError("query failed", err)
		}

		casted, ok := res.(R)
		if !ok {
			return zero, driver.NewBackendError(
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero), nil)
		}
		return casted, nil
	}
	return zero, driver.NewConnectionError("query timed out", nil)
}

// --------------------------------------------------------------------------
// Key Operations (docu see driver.IConn)
// --------------------------------------------------------------------------

func (c *Conn) Exists(key string) (bool, error) {
	return read[bool](c, internal.Query{Type: internal.QueryTExists, Key: key}, false)
}

func (c *Conn) Get(key string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](c, internal.Query{Type: internal.QueryTGet, Key: key}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (c *Conn) Set(key string, value []byte) error {
	_, err := c.write(internal.Command{
		Type:  internal.CommandTSet,
		Key:   key,
		Value: value,
	})
	return err
}

func (c *Conn) SetX(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return driver.NewBackendError("SetX requires a positive ttl", nil)
	}
	// the proposer fixes the deadline so all replicas store the same state
	_, err := c.write(internal.Command{
		Type:  internal.CommandTSetXAt,
		Key:   key,
		Arg:   time.Now().Add(ttl).UnixNano(),
		Value: value,
	})
	return err
}

func (c *Conn) SetIfAbsent(key string, value []byte, ttl time.Duration) (bool, error) {
	var deadline int64
	if ttl > 0 {
		deadline = time.Now().Add(ttl).UnixNano()
	}
	data, err := c.write(internal.Command{
		Type:  internal.CommandTSetIfAbsentAt,
		Key:   key,
		Arg:   deadline,
		Value: value,
	})
	if err != nil {
		return false, err
	}
	return boolResult(data)
}

func (c *Conn) Delete(key string) error {
	_, err := c.write(internal.Command{
		Type: internal.CommandTDelete,
		Key:  key,
	})
	return err
}

func (c *Conn) Increment(key string, delta int64) (int64, error) {
	data, err := c.write(internal.Command{
		Type: internal.CommandTIncrement,
		Key:  key,
		Arg:  delta,
	})
	if err != nil {
		return 0, err
	}
	return int64Result(data)
}

func (c *Conn) Expire(key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, driver.NewBackendError("Expire requires a positive ttl", nil)
	}
	data, err := c.write(internal.Command{
		Type: internal.CommandTExpireAt,
		Key:  key,
		Arg:  time.Now().Add(ttl).UnixNano(),
	})
	if err != nil {
		return false, err
	}
	return boolResult(data)
}

// --------------------------------------------------------------------------
// Hash Operations (docu see driver.IConn)
// --------------------------------------------------------------------------

func (c *Conn) HGet(key, field string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](c, internal.Query{
		Type:  internal.QueryTHGet,
		Key:   key,
		Field: field,
	}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (c *Conn) HExists(key, field string) (bool, error) {
	return read[bool](c, internal.Query{
		Type:  internal.QueryTHExists,
		Key:   key,
		Field: field,
	}, false)
}

func (c *Conn) HSet(key, field string, value []byte) (bool, error) {
	data, err := c.write(internal.Command{
		Type:  internal.CommandTHSet,
		Key:   key,
		Field: field,
		Value: value,
	})
	if err != nil {
		return false, err
	}
	return boolResult(data)
}

func (c *Conn) HDelete(key string, fields ...string) (int64, error) {
	data, err := c.write(internal.Command{
		Type:  internal.CommandTHDelete,
		Key:   key,
		Value: internal.EncodeFieldList(fields),
	})
	if err != nil {
		return 0, err
	}
	return int64Result(data)
}

func (c *Conn) HLen(key string) (int64, error) {
	return read[int64](c, internal.Query{Type: internal.QueryTHLen, Key: key}, false)
}

func (c *Conn) HKeys(key string) ([]string, error) {
	return read[[]string](c, internal.Query{Type: internal.QueryTHKeys, Key: key}, false)
}

// --------------------------------------------------------------------------
// Connection Management (docu see driver.IConn)
// --------------------------------------------------------------------------

func (c *Conn) RunCommand(string) ([]byte, error) {
	// raw commands would bypass the raft log
	return nil, driver.NewBackendError("raw commands are not supported on replicated back ends", nil)
}

func (c *Conn) Ping() error {
	_, err := read[driver.DriverInfo](c, internal.Query{Type: internal.QueryTInfo}, true)
	return err
}

func (c *Conn) Reconnect() error {
	// the NodeHost manages its transport connections itself
	return nil
}

func (c *Conn) SupportsFeature(feature driver.Feature) bool {
	supported := driver.FeatureExists |
		driver.FeatureGet |
		driver.FeatureSet |
		driver.FeatureSetX |
		driver.FeatureSetIfAbsent |
		driver.FeatureDelete |
		driver.FeatureIncrement |
		driver.FeatureExpire |
		driver.FeatureHashes
	return supported&feature == feature
}

func (c *Conn) GetInfo() driver.DriverInfo {
	info := driver.DriverInfo{
		DriverType:  driver.ImplRaft,
		ClusterSize: 1,
		SupportedFeatures: []driver.Feature{
			driver.FeatureExists, driver.FeatureGet, driver.FeatureSet,
			driver.FeatureSetX, driver.FeatureSetIfAbsent, driver.FeatureDelete,
			driver.FeatureIncrement, driver.FeatureExpire, driver.FeatureHashes,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if membership, err := c.nh.SyncGetShardMembership(ctx, c.shardID); err == nil {
		info.ClusterSize = len(membership.Nodes)
	}

	// Note: allow for stale reads, the info is diagnostic anyway
	if applied, err := read[driver.DriverInfo](c, internal.Query{Type: internal.QueryTInfo}, true); err == nil {
		info.Metadata = applied.Metadata
	}
	return info
}

func (c *Conn) Close() error {
	// the NodeHost is owned by the caller
	return nil
}

// --------------------------------------------------------------------------
// Result Decoding
// --------------------------------------------------------------------------

func boolResult(data []byte) (bool, error) {
	if len(data) != 1 {
		return false, driver.NewBackendError("malformed boolean result", nil)
	}
	return data[0] == 1, nil
}

func int64Result(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, driver.NewBackendError("malformed integer result", nil)
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}
