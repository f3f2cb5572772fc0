package client

import (
	"encoding/json"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/rpc/common"
	"github.com/ValentinKolb/dPS/rpc/serializer"
	"github.com/ValentinKolb/dPS/rpc/transport"
)

// remoteFeatures are the operations the RPC protocol carries. Whether the
// back end behind the server supports them is reported by GetInfo.
const remoteFeatures = driver.FeatureExists |
	driver.FeatureGet |
	driver.FeatureSet |
	driver.FeatureSetX |
	driver.FeatureSetIfAbsent |
	driver.FeatureDelete |
	driver.FeatureIncrement |
	driver.FeatureExpire |
	driver.FeatureHashes |
	driver.FeatureRunCommand

// NewRPCConn creates a new remote driver connection
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a driver.IConn and an error
func NewRPCConn(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (driver.IConn, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC connection
	c := rpcConn{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC connection
	return &c, nil
}

type rpcConn struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see driver.IConn)
// --------------------------------------------------------------------------

func (i *rpcConn) Exists(key string) (ok bool, err error) {
	req := common.NewExistsRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcConn) Get(key string) (value []byte, loaded bool, err error) {
	req := common.NewGetRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcConn) Set(key string, value []byte) (err error) {
	req := common.NewSetRequest(key, value)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcConn) SetX(key string, value []byte, ttl time.Duration) (err error) {
	req := common.NewSetXRequest(key, value, uint64(ttl))
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcConn) SetIfAbsent(key string, value []byte, ttl time.Duration) (ok bool, err error) {
	req := common.NewSetIfAbsentRequest(key, value, uint64(ttl))
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcConn) Delete(key string) (err error) {
	req := common.NewDeleteRequest(key)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcConn) Increment(key string, delta int64) (value int64, err error) {
	req := common.NewIncrementRequest(key, delta)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (i *rpcConn) Expire(key string, ttl time.Duration) (ok bool, err error) {
	req := common.NewExpireRequest(key, uint64(ttl))
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcConn) HGet(key, field string) (value []byte, loaded bool, err error) {
	req := common.NewHGetRequest(key, field)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcConn) HExists(key, field string) (ok bool, err error) {
	req := common.NewHExistsRequest(key, field)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcConn) HSet(key, field string, value []byte) (created bool, err error) {
	req := common.NewHSetRequest(key, field, value)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcConn) HDelete(key string, fields ...string) (removed int64, err error) {
	req := common.NewHDeleteRequest(key, fields)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (i *rpcConn) HLen(key string) (length int64, err error) {
	req := common.NewHLenRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (i *rpcConn) HKeys(key string) (fields []string, err error) {
	req := common.NewHKeysRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

func (i *rpcConn) RunCommand(cmd string) (result []byte, err error) {
	req := common.NewRunCommandRequest(cmd)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (i *rpcConn) Ping() (err error) {
	req := common.NewPingRequest()
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcConn) Reconnect() (err error) {
	// Tear down and re-establish all transport connections
	if err := i.transport.Close(); err != nil {
		Logger.Warningf("failed to close transport on reconnect: %v", err)
	}
	return i.transport.Connect(i.config)
}

func (i *rpcConn) SupportsFeature(feature driver.Feature) (ok bool) {
	return remoteFeatures&feature == feature
}

func (i *rpcConn) GetInfo() (info driver.DriverInfo) {
	req := common.NewInfoRequest()
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		// The connection itself still is a remote driver even if the
		// server could not be asked for details
		return driver.DriverInfo{DriverType: driver.ImplRemote}
	}

	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return driver.DriverInfo{DriverType: driver.ImplRemote}
	}

	// Report the remote back end but mark the connection as remote
	info.Metadata = map[string]interface{}{
		"remote_driver": string(info.DriverType),
		"shard_id":      i.shardId,
	}
	info.DriverType = driver.ImplRemote
	return info
}

func (i *rpcConn) Close() (err error) {
	return i.transport.Close()
}
