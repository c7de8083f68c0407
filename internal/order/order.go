// Package order 订单与成交实体
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/petertoman80/trade-frame/internal/instrument"
	"github.com/petertoman80/trade-frame/pkg/errors"
)

// Type 订单类型
type Type int

const (
	TypeMarket    Type = 1
	TypeLimit     Type = 2
	TypeStop      Type = 3
	TypeStopLimit Type = 4 // 同时带限价与止损价
)

// Side 订单方向
type Side int

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

// Order 一笔订单的完整生命周期状态。
// 构造后由 OrderManager 独占持有，所有变更经由 manager 的操作进行。
type Order struct {
	OrderID      int64
	InstrumentID string
	Instrument   *instrument.Instrument
	PositionID   int64
	Type         Type
	Side         Side
	Quantity     int64

	// Price1 限价（TypeLimit/TypeStopLimit）或止损价（TypeStop）
	// Price2 止损价（仅 TypeStopLimit）
	Price1 decimal.Decimal
	Price2 decimal.Decimal

	Status            Status
	QuantityFilled    int64
	QuantityRemaining int64
	AverageFillPrice  decimal.Decimal
	Commission        decimal.Decimal

	DateTimeSubmitted time.Time
	DateTimeClosed    time.Time
}

// New 构造订单。按订单类型校验数量与价格：
// 数量 > 0；TypeLimit/TypeStop 要求 price1 > 0；TypeStopLimit 要求两个价格均 > 0；
// 市价单不携带价格。
func New(inst *instrument.Instrument, orderType Type, side Side, quantity int64, price1, price2 decimal.Decimal, positionID int64) (*Order, error) {
	if inst == nil {
		return nil, errors.New(errors.CodeInvalidParam, "instrument is required")
	}
	if side != SideBuy && side != SideSell {
		return nil, errors.Newf(errors.CodeInvalidParam, "invalid side %d", side)
	}
	if quantity <= 0 {
		return nil, errors.Newf(errors.CodeInvalidQuantity, "quantity must be positive, got %d", quantity)
	}

	switch orderType {
	case TypeMarket:
		if !price1.IsZero() || !price2.IsZero() {
			return nil, errors.New(errors.CodeInvalidPrice, "market order carries no price")
		}
	case TypeLimit, TypeStop:
		if price1.Sign() <= 0 {
			return nil, errors.Newf(errors.CodeInvalidPrice, "price must be positive, got %s", price1)
		}
		if !price2.IsZero() {
			return nil, errors.Newf(errors.CodeInvalidPrice, "order type %d carries a single price", orderType)
		}
	case TypeStopLimit:
		if price1.Sign() <= 0 || price2.Sign() <= 0 {
			return nil, errors.Newf(errors.CodeInvalidPrice, "both prices must be positive, got %s / %s", price1, price2)
		}
	default:
		return nil, errors.Newf(errors.CodeInvalidParam, "invalid order type %d", orderType)
	}

	return &Order{
		InstrumentID:      inst.InstrumentID,
		Instrument:        inst,
		PositionID:        positionID,
		Type:              orderType,
		Side:              side,
		Quantity:          quantity,
		Price1:            price1,
		Price2:            price2,
		Status:            StatusCreated,
		QuantityFilled:    0,
		QuantityRemaining: quantity,
		AverageFillPrice:  decimal.Zero,
		Commission:        decimal.Zero,
	}, nil
}

// MarkSubmitted 下发给路由商时调用，Created -> Submitted
func (o *Order) MarkSubmitted(now time.Time) error {
	if err := checkTransition(o.Status, StatusSubmitted); err != nil {
		return err
	}
	o.Status = StatusSubmitted
	o.DateTimeSubmitted = now
	return nil
}

// ApplyExecution 应用一笔成交：累加已成交量、扣减剩余量、
// 重算数量加权均价并推导新状态。返回推导出的状态。
func (o *Order) ApplyExecution(exec *Execution) (Status, error) {
	if exec.Quantity <= 0 {
		return o.Status, errors.Newf(errors.CodeInvalidQuantity, "execution quantity must be positive, got %d", exec.Quantity)
	}
	if o.Status != StatusSubmitted && o.Status != StatusPartiallyFilled {
		if o.Status.IsTerminal() {
			return o.Status, errors.Newf(errors.CodeTerminalState, "order %d is %s, no further executions accepted", o.OrderID, o.Status)
		}
		return o.Status, errors.Newf(errors.CodeOrderNotPlaced, "order %d is %s, not yet placed", o.OrderID, o.Status)
	}
	if exec.Quantity > o.QuantityRemaining {
		return o.Status, errors.Newf(errors.CodeOverfill, "execution quantity %d exceeds remaining %d", exec.Quantity, o.QuantityRemaining)
	}

	// 数量加权均价：(均价*旧已成交 + 价*量) / 新已成交
	prevNotional := o.AverageFillPrice.Mul(decimal.NewFromInt(o.QuantityFilled))
	execNotional := exec.Price.Mul(decimal.NewFromInt(exec.Quantity))

	o.QuantityFilled += exec.Quantity
	o.QuantityRemaining -= exec.Quantity
	o.AverageFillPrice = prevNotional.Add(execNotional).Div(decimal.NewFromInt(o.QuantityFilled))

	if o.QuantityRemaining == 0 {
		o.Status = StatusFilled
		o.DateTimeClosed = exec.Timestamp
	} else {
		o.Status = StatusPartiallyFilled
	}
	return o.Status, nil
}

// MarkCancelled 路由商确认撤单后调用，Submitted/PartiallyFilled -> Cancelled
func (o *Order) MarkCancelled(now time.Time) error {
	if err := checkTransition(o.Status, StatusCancelled); err != nil {
		return err
	}
	o.Status = StatusCancelled
	o.DateTimeClosed = now
	return nil
}

// ApplyError 应用路由商上报的错误。除 ErrorCancelReject（撤单被拒，
// 订单维持原状态继续存续）外，其余错误将订单置为终态 Error。
func (o *Order) ApplyError(kind ErrorKind, now time.Time) error {
	if kind == ErrorCancelReject {
		if o.Status.IsTerminal() {
			return errors.Newf(errors.CodeTerminalState, "order %d is %s", o.OrderID, o.Status)
		}
		return nil
	}
	if err := checkTransition(o.Status, StatusError); err != nil {
		return err
	}
	o.Status = StatusError
	o.DateTimeClosed = now
	return nil
}

// SetCommission 覆盖佣金（路由商上报的是累计值）
func (o *Order) SetCommission(amount decimal.Decimal) {
	o.Commission = amount
}

// IsTerminal 是否处于终态
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}
