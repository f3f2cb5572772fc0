package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// NewDriverServerAdapter creates the adapter that maps RPC messages onto
// the primitive operations of a driver connection
func NewDriverServerAdapter() IRPCServerAdapter {
	return &driverServerAdapterImpl{}
}

type driverServerAdapterImpl struct{}

func (adapter *driverServerAdapterImpl) Handle(req *common.Message, conn driver.IConn) *common.Message {
	// Check for nil connection
	if conn == nil {
		return common.NewErrorResponse("handler: connection is nil")
	}

	// Track per operation request counts and latency
	start := time.Now()
	defer func() {
		op := req.MsgType.String()
		metrics.GetOrCreateCounter(fmt.Sprintf(`rpc_requests_total{op=%q}`, op)).Inc()
		metrics.GetOrCreateSummary(fmt.Sprintf(`rpc_request_duration_seconds{op=%q}`, op)).UpdateDuration(start)
	}()

	// Handle different message types
	switch req.MsgType {
	case common.MsgTExists:
		ok, err := conn.Exists(req.Key)
		return common.NewExistsResponse(ok, err)
	case common.MsgTGet:
		val, ok, err := conn.Get(req.Key)
		return common.NewGetResponse(val, ok, err)
	case common.MsgTSet:
		err := conn.Set(req.Key, req.Value)
		return common.NewSetResponse(err)
	case common.MsgTSetX:
		err := conn.SetX(req.Key, req.Value, time.Duration(req.TTL))
		return common.NewSetXResponse(err)
	case common.MsgTSetIfAbsent:
		ok, err := conn.SetIfAbsent(req.Key, req.Value, time.Duration(req.TTL))
		return common.NewSetIfAbsentResponse(ok, err)
	case common.MsgTDelete:
		err := conn.Delete(req.Key)
		return common.NewDeleteResponse(err)
	case common.MsgTIncrement:
		val, err := conn.Increment(req.Key, req.Delta)
		return common.NewIncrementResponse(val, err)
	case common.MsgTExpire:
		ok, err := conn.Expire(req.Key, time.Duration(req.TTL))
		return common.NewExpireResponse(ok, err)
	case common.MsgTHGet:
		val, ok, err := conn.HGet(req.Key, req.Field)
		return common.NewHGetResponse(val, ok, err)
	case common.MsgTHExists:
		ok, err := conn.HExists(req.Key, req.Field)
		return common.NewHExistsResponse(ok, err)
	case common.MsgTHSet:
		created, err := conn.HSet(req.Key, req.Field, req.Value)
		return common.NewHSetResponse(created, err)
	case common.MsgTHDelete:
		removed, err := conn.HDelete(req.Key, req.Fields...)
		return common.NewHDeleteResponse(removed, err)
	case common.MsgTHLen:
		length, err := conn.HLen(req.Key)
		return common.NewHLenResponse(length, err)
	case common.MsgTHKeys:
		fields, err := conn.HKeys(req.Key)
		return common.NewHKeysResponse(fields, err)
	case common.MsgTRunCommand:
		result, err := conn.RunCommand(string(req.Value))
		return common.NewRunCommandResponse(result, err)
	case common.MsgTPing:
		err := conn.Ping()
		return common.NewPingResponse(err)
	case common.MsgTInfo:
		info := conn.GetInfo()
		meta, err := json.Marshal(info)
		return common.NewInfoResponse(meta, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC DriverAdapter - Unsuported message type: %s", req.MsgType),
		)
	}
}

type MessageHandler func(req *common.Message) (resp *common.Message)

type RegisterMessageHandler func(handler MessageHandler)
