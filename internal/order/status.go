package order

import "github.com/petertoman80/trade-frame/pkg/errors"

// Status 订单状态
type Status int

const (
	StatusCreated         Status = 0
	StatusSubmitted       Status = 1
	StatusPartiallyFilled Status = 2
	StatusFilled          Status = 3
	StatusCancelled       Status = 4
	StatusError           Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal 终态不可再迁移
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusError:
		return true
	}
	return false
}

// transitions 合法状态迁移表：
// Created -> Submitted -> PartiallyFilled* -> Filled
// Submitted/PartiallyFilled -> Cancelled
// 任意非终态 -> Error
var transitions = map[Status][]Status{
	StatusCreated:         {StatusSubmitted, StatusError},
	StatusSubmitted:       {StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusError},
	StatusPartiallyFilled: {StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusError},
}

func checkTransition(from, to Status) error {
	if from.IsTerminal() {
		return errors.Newf(errors.CodeTerminalState, "no transition out of terminal state %s", from)
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return errors.Newf(errors.CodeInvalidParam, "illegal transition %s -> %s", from, to)
}

// ErrorKind 路由商上报的错误分类
type ErrorKind int

const (
	ErrorUnknown      ErrorKind = 0
	ErrorRejected     ErrorKind = 1 // 下单被拒
	ErrorDisconnected ErrorKind = 2 // 连接中断，订单状态不可知
	ErrorCancelReject ErrorKind = 3 // 撤单被拒，订单继续存续
	ErrorInstrument   ErrorKind = 4 // 合约不可交易
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorRejected:
		return "REJECTED"
	case ErrorDisconnected:
		return "DISCONNECTED"
	case ErrorCancelReject:
		return "CANCEL_REJECT"
	case ErrorInstrument:
		return "INSTRUMENT"
	default:
		return "UNKNOWN"
	}
}
