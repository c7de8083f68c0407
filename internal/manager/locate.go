package manager

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/petertoman80/trade-frame/internal/order"
	"github.com/petertoman80/trade-frame/internal/repository"
	"github.com/petertoman80/trade-frame/pkg/errors"
)

// hydration 跟踪一次进行中的存储恢复；并发的首次 Locate 共享同一次加载
type hydration struct {
	done chan struct{}
	st   *OrderState
	err  error
}

// Locate 按 ID 取订单状态。注册表命中直接返回；未命中且配置了存储时
// 从存储恢复（懒加载），同一 ID 的并发首次查找只触发一次存储读取。
// 返回的指针在进程生存期内对该 ID 唯一。
func (m *OrderManager) Locate(ctx context.Context, orderID int64) (*OrderState, error) {
	start := time.Now()
	defer func() { m.metrics.ObserveLocateLatency(time.Since(start)) }()

	m.mu.RLock()
	st, ok := m.orders[orderID]
	m.mu.RUnlock()
	if ok {
		return st, nil
	}

	if m.store == nil {
		return nil, errors.Newf(errors.CodeNotFound, "order %d not found", orderID)
	}

	m.mu.Lock()
	// 等待锁期间可能已有人完成加载
	if st, ok := m.orders[orderID]; ok {
		m.mu.Unlock()
		return st, nil
	}
	h, inflight := m.hydrating[orderID]
	if !inflight {
		h = &hydration{done: make(chan struct{})}
		m.hydrating[orderID] = h
	}
	m.mu.Unlock()

	if inflight {
		select {
		case <-h.done:
			return h.st, h.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	st, err := m.hydrate(ctx, orderID)

	m.mu.Lock()
	delete(m.hydrating, orderID)
	if err == nil {
		m.orders[orderID] = st
	}
	m.mu.Unlock()

	h.st, h.err = st, err
	close(h.done)
	return st, err
}

// hydrate 从存储重建订单状态：读订单行、解析合约、回放成交集合。
// 恢复出的订单不持有路由商关联，撤单需重新挂接后才可派发。
func (m *OrderManager) hydrate(ctx context.Context, orderID int64) (*OrderState, error) {
	row, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		if stderrors.Is(err, repository.ErrOrderNotFound) {
			return nil, errors.Newf(errors.CodeNotFound, "order %d not found", orderID)
		}
		return nil, errors.Wrap(errors.CodeStoreFailure, "load order", err)
	}

	if m.resolver == nil {
		return nil, errors.Newf(errors.CodeNoResolver, "no instrument resolver to restore order %d", orderID)
	}
	inst, err := m.resolver.Resolve(ctx, row.InstrumentID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNoResolver, "resolve instrument", err)
	}

	o, err := rowToOrder(row, inst)
	if err != nil {
		return nil, err
	}

	execRows, err := m.store.ListExecutions(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreFailure, "load executions", err)
	}
	execs := make(map[int64]*order.Execution, len(execRows))
	for _, er := range execRows {
		e, err := rowToExecution(er)
		if err != nil {
			return nil, err
		}
		execs[e.ExecutionID] = e
	}

	if !o.Status.IsTerminal() {
		m.incActive()
	}
	m.metrics.IncHydration()
	m.log.WithOrderID(orderID).Debug("order hydrated from store")

	return &OrderState{Order: o, Executions: execs}, nil
}
