package sharded

import (
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/util"
)

// --------------------------------------------------------------------------
// Sharded Router
// --------------------------------------------------------------------------

// router fans the primitive operations out over a fixed set of
// connections. The owning connection for a key is selected by hashing
// the key, so the placement is stable for the lifetime of the router.
// Hash operations route by the container key, which keeps all fields of
// one container on one back end.
type router struct {
	conns []driver.IConn
}

// New creates a partitioned driver over the given connections.
// The connection list is fixed; resizing requires a new router.
func New(conns []driver.IConn) (driver.IConn, error) {
	if len(conns) == 0 {
		return nil, driver.NewConnectionError("no connections provided", nil)
	}
	for i, c := range conns {
		if c == nil {
			return nil, driver.NewConnectionError(fmt.Sprintf("connection %d is nil", i), nil)
		}
	}
	return &router{conns: conns}, nil
}

// Route returns the index of the connection owning the given key.
func Route(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(util.Hash64(key) % uint64(n))
}

// conn selects the owning connection for a key
func (r *router) conn(key string) driver.IConn {
	return r.conns[Route(key, len(r.conns))]
}

// --------------------------------------------------------------------------
// Key Operations (docu see driver.IConn)
// --------------------------------------------------------------------------

func (r *router) Exists(key string) (bool, error) {
	return r.conn(key).Exists(key)
}

func (r *router) Get(key string) ([]byte, bool, error) {
	return r.conn(key).Get(key)
}

func (r *router) Set(key string, value []byte) error {
	return r.conn(key).Set(key, value)
}

func (r *router) SetX(key string, value []byte, ttl time.Duration) error {
	return r.conn(key).SetX(key, value, ttl)
}

func (r *router) SetIfAbsent(key string, value []byte, ttl time.Duration) (bool, error) {
	return r.conn(key).SetIfAbsent(key, value, ttl)
}

func (r *router) Delete(key string) error {
	return r.conn(key).Delete(key)
}

func (r *router) Increment(key string, delta int64) (int64, error) {
	return r.conn(key).Increment(key, delta)
}

func (r *router) Expire(key string, ttl time.Duration) (bool, error) {
	return r.conn(key).Expire(key, ttl)
}

// --------------------------------------------------------------------------
// Hash Operations (docu see driver.IConn)
// --------------------------------------------------------------------------

func (r *router) HGet(key, field string) ([]byte, bool, error) {
	return r.conn(key).HGet(key, field)
}

func (r *router) HExists(key, field string) (bool, error) {
	return r.conn(key).HExists(key, field)
}

func (r *router) HSet(key, field string, value []byte) (bool, error) {
	return r.conn(key).HSet(key, field, value)
}

func (r *router) HDelete(key string, fields ...string) (int64, error) {
	return r.conn(key).HDelete(key, fields...)
}

func (r *router) HLen(key string) (int64, error) {
	return r.conn(key).HLen(key)
}

func (r *router) HKeys(key string) ([]string, error) {
	return r.conn(key).HKeys(key)
}

// --------------------------------------------------------------------------
// Connection Management (docu see driver.IConn)
// --------------------------------------------------------------------------

// RunCommand executes the command on the first connection. Raw commands
// carry no key to route by.
func (r *router) RunCommand(cmd string) ([]byte, error) {
	return r.conns[0].RunCommand(cmd)
}

// Ping checks all partitions; a single unreachable partition fails the
// whole router since every partition owns live data.
func (r *router) Ping() error {
	for i, c := range r.conns {
		if err := c.Ping(); err != nil {
			return driver.NewConnectionError(fmt.Sprintf("partition %d unreachable", i), err)
		}
	}
	return nil
}

func (r *router) Reconnect() error {
	var errs []error
	for _, c := range r.conns {
		errs = append(errs, c.Reconnect())
	}
	return errors.Join(errs...)
}

// SupportsFeature reports a feature as supported only if every
// partition supports it.
func (r *router) SupportsFeature(feature driver.Feature) bool {
	for _, c := range r.conns {
		if !c.SupportsFeature(feature) {
			return false
		}
	}
	return true
}

func (r *router) GetInfo() driver.DriverInfo {
	clusterSize := 0
	for _, c := range r.conns {
		clusterSize += c.GetInfo().ClusterSize
	}

	first := r.conns[0].GetInfo()

	var features []driver.Feature
	for _, f := range first.SupportedFeatures {
		if r.SupportsFeature(f) {
			features = append(features, f)
		}
	}

	return driver.DriverInfo{
		DriverType:        driver.ImplSharded,
		ClusterSize:       clusterSize,
		SupportedFeatures: features,
		Metadata: &struct {
			Partitions int `json:"partitions"`
		}{Partitions: len(r.conns)},
	}
}

func (r *router) Close() error {
	var errs []error
	for _, c := range r.conns {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
