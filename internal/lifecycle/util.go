package lifecycle

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) set(s State) { a.v.Store(int32(s)) }
func (a *atomicState) get() State  { return State(a.v.Load()) }

func nowMillis() int64 { return time.Now().UnixMilli() }

func marshalEventData(data interface{}) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(data)
}
