package hub

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// Frame types exchanged over the websocket. Every frame is a JSON object
// with a "type" field.
const (
	frameInvocation = "invocation"
	frameCompletion = "completion"
	frameEvent      = "event"
	framePing       = "ping"
)

// Invocation targets a client may call.
const (
	TargetJoinOrderGroup      = "JoinOrderGroup"
	TargetLeaveOrderGroup     = "LeaveOrderGroup"
	TargetJoinAllOrdersGroup  = "JoinAllOrdersGroup"
	TargetLeaveAllOrdersGroup = "LeaveAllOrdersGroup"
)

var ErrUnknownTarget = errors.New("unknown invocation target")

// inboundFrame is what clients send:
//
//	{"type":"invocation","invocationId":"1","target":"JoinOrderGroup","arguments":["order-001"]}
type inboundFrame struct {
	Type         string            `json:"type"`
	InvocationID string            `json:"invocationId,omitempty"`
	Target       string            `json:"target,omitempty"`
	Arguments    []json.RawMessage `json:"arguments,omitempty"`
}

type completionFrame struct {
	Type         string `json:"type"`
	InvocationID string `json:"invocationId"`
	Error        string `json:"error,omitempty"`
}

type eventFrame struct {
	Type      string            `json:"type"`
	Target    string            `json:"target"`
	Arguments []json.RawMessage `json:"arguments"`
}

func encodeEvent(evt domain.ChangeEvent) ([]byte, error) {
	data := evt.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	frame, err := json.Marshal(eventFrame{
		Type:      frameEvent,
		Target:    string(evt.Method),
		Arguments: []json.RawMessage{data},
	})
	if err != nil {
		return nil, fmt.Errorf("encode event frame: %w", err)
	}
	return frame, nil
}

func encodeCompletion(invocationID string, err error) []byte {
	cf := completionFrame{Type: frameCompletion, InvocationID: invocationID}
	if err != nil {
		cf.Error = err.Error()
	}
	frame, _ := json.Marshal(cf)
	return frame
}

// Invoke runs a client invocation on behalf of connID. Group changes only
// ever affect the calling connection.
func (h *Hub) Invoke(connID, target string, args []json.RawMessage) error {
	switch target {
	case TargetJoinOrderGroup, TargetLeaveOrderGroup:
		orderID, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		if orderID == "" {
			return errors.New("orderId is required")
		}
		if target == TargetJoinOrderGroup {
			return h.Join(connID, domain.OrderGroup(orderID))
		}
		return h.Leave(connID, domain.OrderGroup(orderID))
	case TargetJoinAllOrdersGroup:
		return h.Join(connID, domain.AllOrdersGroup)
	case TargetLeaveAllOrdersGroup:
		return h.Leave(connID, domain.AllOrdersGroup)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
}

func stringArg(args []json.RawMessage, i int) (string, error) {
	if len(args) <= i {
		return "", fmt.Errorf("missing argument %d", i)
	}
	var s string
	if err := json.Unmarshal(args[i], &s); err != nil {
		return "", fmt.Errorf("argument %d must be a string", i)
	}
	return s, nil
}
