package manager

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/petertoman80/trade-frame/internal/instrument"
	"github.com/petertoman80/trade-frame/internal/metrics"
	"github.com/petertoman80/trade-frame/internal/order"
	"github.com/petertoman80/trade-frame/internal/provider"
	"github.com/petertoman80/trade-frame/internal/repository"
	"github.com/petertoman80/trade-frame/pkg/errors"
	"github.com/petertoman80/trade-frame/pkg/logger"
)

// OrderManager 订单的唯一权威：创建订单并分配 ID、跟踪生命周期、
// 记录成交与佣金、维持内存注册表与持久化存储的一致。
// 依赖全部注入，可在测试中并存多个隔离实例。
type OrderManager struct {
	mu        sync.RWMutex
	orders    map[int64]*OrderState
	hydrating map[int64]*hydration

	idGen     IDGenerator
	store     Store
	resolver  instrument.Resolver
	log       *logger.Logger
	metrics   *metrics.Metrics
	publisher Publisher

	// 无存储运行时的本地成交 ID（负数递减）
	localExecSeq int64

	active int64
}

// New 创建订单管理器。store、resolver、metrics 可为 nil；
// store 为 nil 时以纯内存模式运行，resolver 仅在从存储恢复订单时必需。
func New(idGen IDGenerator, store Store, resolver instrument.Resolver, log *logger.Logger, m *metrics.Metrics) *OrderManager {
	if log == nil {
		log = logger.Nop()
	}
	return &OrderManager{
		orders:    make(map[int64]*OrderState),
		hydrating: make(map[int64]*hydration),
		idGen:     idGen,
		store:     store,
		resolver:  resolver,
		log:       log,
		metrics:   m,
	}
}

// SetPublisher 挂接生命周期事件出口
func (m *OrderManager) SetPublisher(p Publisher) {
	m.publisher = p
}

// ConstructMarketOrder 构造市价单
func (m *OrderManager) ConstructMarketOrder(ctx context.Context, inst *instrument.Instrument, side order.Side, quantity int64, positionID int64) (*order.Order, error) {
	return m.construct(ctx, inst, order.TypeMarket, side, quantity, decimal.Zero, decimal.Zero, positionID)
}

// ConstructLimitOrder 构造限价单
func (m *OrderManager) ConstructLimitOrder(ctx context.Context, inst *instrument.Instrument, side order.Side, quantity int64, price decimal.Decimal, positionID int64) (*order.Order, error) {
	return m.construct(ctx, inst, order.TypeLimit, side, quantity, price, decimal.Zero, positionID)
}

// ConstructStopOrder 构造止损单
func (m *OrderManager) ConstructStopOrder(ctx context.Context, inst *instrument.Instrument, side order.Side, quantity int64, price decimal.Decimal, positionID int64) (*order.Order, error) {
	return m.construct(ctx, inst, order.TypeStop, side, quantity, price, decimal.Zero, positionID)
}

// ConstructStopLimitOrder 构造限价止损单
func (m *OrderManager) ConstructStopLimitOrder(ctx context.Context, inst *instrument.Instrument, side order.Side, quantity int64, limitPrice, stopPrice decimal.Decimal, positionID int64) (*order.Order, error) {
	return m.construct(ctx, inst, order.TypeStopLimit, side, quantity, limitPrice, stopPrice, positionID)
}

// construct 三类构造器共同的注册步骤：
// 校验 -> 分配 ID -> 入注册表 -> 落盘。落盘失败回滚注册表并向调用方
// 传播：声称存在却没有持久化记录的订单是正确性隐患。
func (m *OrderManager) construct(ctx context.Context, inst *instrument.Instrument, orderType order.Type, side order.Side, quantity int64, price1, price2 decimal.Decimal, positionID int64) (*order.Order, error) {
	o, err := order.New(inst, orderType, side, quantity, price1, price2, positionID)
	if err != nil {
		return nil, err
	}

	id, err := m.idGen.NextID(ctx)
	if err != nil {
		return nil, err
	}
	o.OrderID = id

	st := &OrderState{
		Order:      o,
		Executions: make(map[int64]*order.Execution),
	}

	m.mu.Lock()
	if _, exists := m.orders[id]; exists {
		m.mu.Unlock()
		return nil, errors.Newf(errors.CodeConflict, "order id %d already exists", id)
	}
	m.orders[id] = st
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.InsertOrder(ctx, orderToRow(o)); err != nil {
			m.mu.Lock()
			delete(m.orders, id)
			m.mu.Unlock()
			if stderrors.Is(err, repository.ErrDuplicateOrderID) {
				return nil, errors.Newf(errors.CodeConflict, "order id %d already exists in store", id)
			}
			return nil, errors.Wrap(errors.CodeStoreFailure, "persist order", err)
		}
	}

	m.incActive()
	m.metrics.IncOrderConstructed(typeLabel(orderType), sideLabel(side))
	m.publish(ctx, "created", o)
	m.log.WithOrderID(id).Infof("order constructed", map[string]interface{}{
		"type": typeLabel(orderType),
		"side": sideLabel(side),
		"qty":  quantity,
	})
	return o, nil
}

// Place 将订单派发给路由商：记录关联、置为 Submitted 并打提交时间戳、
// 调用路由商的 place、落盘新状态。派发在订单锁外进行，路由商的网络
// I/O 不会阻塞管理器内部锁。
func (m *OrderManager) Place(ctx context.Context, p provider.Provider, o *order.Order) error {
	if p == nil {
		return errors.New(errors.CodeInvalidParam, "provider is required")
	}
	st, err := m.Locate(ctx, o.OrderID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	if err := st.Order.MarkSubmitted(time.Now()); err != nil {
		st.mu.Unlock()
		return err
	}
	st.Provider = p
	var storeErr error
	if m.store != nil {
		storeErr = m.store.UpdateOrderPlaced(ctx, st.Order.OrderID, int(st.Order.Status), msFromTime(st.Order.DateTimeSubmitted))
	}
	st.mu.Unlock()

	if storeErr != nil {
		m.metrics.IncStoreLag("place")
		m.log.WithError(storeErr).WithOrderID(o.OrderID).Warn("place persisted lazily, store update failed")
	}

	m.publish(ctx, "placed", o)

	if err := p.Place(ctx, o); err != nil {
		// 派发未能发出；订单保持 Submitted，等待路由商错误回报或撤单
		m.log.WithError(err).WithOrderID(o.OrderID).Error("provider place dispatch failed")
		return errors.Wrap(errors.CodeInternal, "dispatch place to provider", err)
	}
	return nil
}

// Cancel 尽力而为的撤单请求：向路由商派发撤单并刷新镜像。
// 权威的状态变更发生在路由商随后的回报（ReportCancellation /
// ReportError）里，本调用不等待确认。
func (m *OrderManager) Cancel(ctx context.Context, orderID int64) ReportResult {
	st, err := m.Locate(ctx, orderID)
	if err != nil {
		m.metrics.IncReportFailure("cancel")
		return ReportResult{Err: err}
	}

	st.mu.Lock()
	p := st.Provider
	o := st.Order
	st.mu.Unlock()

	if p == nil {
		m.metrics.IncReportFailure("cancel")
		return ReportResult{Err: errors.Newf(errors.CodeNoProvider, "order %d has no routing provider", orderID)}
	}

	if err := p.Cancel(ctx, o); err != nil {
		// 路由商内部的失败由其自身经 ReportError 异步回报
		m.log.WithError(err).WithOrderID(orderID).Warn("provider cancel dispatch failed")
	}

	var storeErr error
	if m.store != nil {
		st.mu.Lock()
		storeErr = m.store.UpdateOrderClosed(ctx, orderID, int(st.Order.Status), msFromTime(st.Order.DateTimeClosed))
		st.mu.Unlock()
	}
	if storeErr != nil {
		m.metrics.IncStoreLag("cancel")
		m.log.WithError(storeErr).WithOrderID(orderID).Warn("cancel store update failed")
	}
	return ReportResult{StoreErr: storeErr}
}

// ReportCancellation 路由商确认撤单后的回报：置为 Cancelled 终态并落盘
func (m *OrderManager) ReportCancellation(ctx context.Context, orderID int64) ReportResult {
	st, err := m.Locate(ctx, orderID)
	if err != nil {
		m.metrics.IncReportFailure("reportCancellation")
		return ReportResult{Err: err}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.Order.MarkCancelled(time.Now()); err != nil {
		m.metrics.IncReportFailure("reportCancellation")
		return ReportResult{Err: err}
	}
	m.decActive()

	var storeErr error
	if m.store != nil {
		storeErr = m.store.UpdateOrderClosed(ctx, orderID, int(st.Order.Status), msFromTime(st.Order.DateTimeClosed))
	}
	if storeErr != nil {
		m.metrics.IncStoreLag("reportCancellation")
		m.log.WithError(storeErr).WithOrderID(orderID).Warn("cancellation store update failed")
	}
	m.publish(ctx, "cancelled", st.Order)
	return ReportResult{StoreErr: storeErr}
}

// ReportExecution 路由商回报一笔成交：订单自身聚合成交并推导状态，
// 管理器落盘聚合字段、插入成交行并以存储生成的 ID 收录进成交映射。
// 全量成交为终态，后续成交将被拒绝。
func (m *OrderManager) ReportExecution(ctx context.Context, orderID int64, exec *order.Execution) ReportResult {
	st, err := m.Locate(ctx, orderID)
	if err != nil {
		m.metrics.IncReportFailure("reportExecution")
		return ReportResult{Err: err}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	status, err := st.Order.ApplyExecution(exec)
	if err != nil {
		m.metrics.IncReportFailure("reportExecution")
		return ReportResult{Err: err}
	}

	exec.OrderID = orderID

	var storeErr error
	if m.store != nil {
		if e := m.store.UpdateOrderFill(ctx, orderID, int(status),
			st.Order.QuantityRemaining, st.Order.QuantityFilled,
			st.Order.AverageFillPrice.String(), msFromTime(st.Order.DateTimeClosed)); e != nil {
			storeErr = e
		}
		if execID, e := m.store.InsertExecution(ctx, executionToRow(exec)); e != nil {
			storeErr = stderrors.Join(storeErr, e)
			exec.ExecutionID = m.nextLocalExecID()
		} else {
			exec.ExecutionID = execID
		}
	} else {
		exec.ExecutionID = m.nextLocalExecID()
	}
	st.Executions[exec.ExecutionID] = exec

	m.metrics.IncExecutionRecorded()
	if status == order.StatusFilled {
		m.decActive()
		m.publish(ctx, "filled", st.Order)
	} else {
		m.publish(ctx, "execution", st.Order)
	}
	if storeErr != nil {
		m.metrics.IncStoreLag("reportExecution")
		m.log.WithError(storeErr).WithOrderID(orderID).Warn("execution store update failed")
	}
	return ReportResult{StoreErr: storeErr}
}

// ReportCommission 路由商回报累计佣金
func (m *OrderManager) ReportCommission(ctx context.Context, orderID int64, amount decimal.Decimal) ReportResult {
	st, err := m.Locate(ctx, orderID)
	if err != nil {
		m.metrics.IncReportFailure("reportCommission")
		return ReportResult{Err: err}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.Order.SetCommission(amount)

	var storeErr error
	if m.store != nil {
		storeErr = m.store.UpdateOrderCommission(ctx, orderID, amount.String())
	}
	if storeErr != nil {
		m.metrics.IncStoreLag("reportCommission")
		m.log.WithError(storeErr).WithOrderID(orderID).Warn("commission store update failed")
	}
	return ReportResult{StoreErr: storeErr}
}

// ReportError 路由商回报错误。除撤单被拒外订单进入 Error 终态并落盘。
func (m *OrderManager) ReportError(ctx context.Context, orderID int64, kind order.ErrorKind) ReportResult {
	st, err := m.Locate(ctx, orderID)
	if err != nil {
		m.metrics.IncReportFailure("reportError")
		return ReportResult{Err: err}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	prev := st.Order.Status
	if err := st.Order.ApplyError(kind, time.Now()); err != nil {
		m.metrics.IncReportFailure("reportError")
		return ReportResult{Err: err}
	}
	if st.Order.Status == order.StatusError && prev != order.StatusError {
		m.decActive()
	}

	var storeErr error
	if m.store != nil && st.Order.Status != prev {
		storeErr = m.store.UpdateOrderClosed(ctx, orderID, int(st.Order.Status), msFromTime(st.Order.DateTimeClosed))
	}
	if storeErr != nil {
		m.metrics.IncStoreLag("reportError")
		m.log.WithError(storeErr).WithOrderID(orderID).Warn("error store update failed")
	}
	m.log.WithOrderID(orderID).Warnf("provider reported error", map[string]interface{}{
		"kind":   kind.String(),
		"status": st.Order.Status.String(),
	})
	m.publish(ctx, "error", st.Order)
	return ReportResult{StoreErr: storeErr}
}

func (m *OrderManager) nextLocalExecID() int64 {
	return atomic.AddInt64(&m.localExecSeq, -1)
}

func (m *OrderManager) incActive() {
	m.metrics.SetActiveOrders(int(atomic.AddInt64(&m.active, 1)))
}

func (m *OrderManager) decActive() {
	m.metrics.SetActiveOrders(int(atomic.AddInt64(&m.active, -1)))
}

func (m *OrderManager) publish(ctx context.Context, event string, o *order.Order) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishOrderEvent(ctx, event, o); err != nil {
		m.log.WithError(err).WithOrderID(o.OrderID).Warn("publish order event failed")
	}
}

func typeLabel(t order.Type) string {
	switch t {
	case order.TypeMarket:
		return "MARKET"
	case order.TypeLimit:
		return "LIMIT"
	case order.TypeStop:
		return "STOP"
	case order.TypeStopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

func sideLabel(s order.Side) string {
	if s == order.SideSell {
		return "SELL"
	}
	return "BUY"
}
