package provider

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/petertoman80/trade-frame/internal/order"
)

// Callbacks 模拟路由商的回报出口，通常接到 OrderManager 的
// report 操作上。任一回调可为 nil。
type Callbacks struct {
	OnExecution func(ctx context.Context, orderID int64, exec *order.Execution)
	OnCancelled func(ctx context.Context, orderID int64)
	OnError     func(ctx context.Context, orderID int64, kind order.ErrorKind)
}

// Sim 模拟路由商：接单后延迟 fillDelay 异步全量成交。
// 市价单按配置的参考价成交，限价/止损单按其委托价成交。
// 用于本地联调与测试。
type Sim struct {
	name      string
	fillDelay time.Duration
	refPrice  decimal.Decimal
	callbacks Callbacks

	mu     sync.Mutex
	placed map[int64]bool

	wg sync.WaitGroup
}

// NewSim 创建模拟路由商
func NewSim(name string, fillDelay time.Duration, refPrice decimal.Decimal, callbacks Callbacks) *Sim {
	return &Sim{
		name:      name,
		fillDelay: fillDelay,
		refPrice:  refPrice,
		callbacks: callbacks,
		placed:    make(map[int64]bool),
	}
}

func (s *Sim) Name() string {
	return s.name
}

// Place 受理订单并在 fillDelay 后回报一笔全量成交
func (s *Sim) Place(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	s.placed[o.OrderID] = true
	s.mu.Unlock()

	orderID := o.OrderID
	quantity := o.QuantityRemaining
	price := s.refPrice
	if o.Type != order.TypeMarket {
		price = o.Price1
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.fillDelay):
		}

		s.mu.Lock()
		live := s.placed[orderID]
		s.mu.Unlock()
		if !live {
			return
		}
		if s.callbacks.OnExecution != nil {
			s.callbacks.OnExecution(ctx, orderID, order.NewExecution(orderID, quantity, price, time.Now()))
		}
	}()
	return nil
}

// Cancel 撤单请求，立即确认
func (s *Sim) Cancel(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	delete(s.placed, o.OrderID)
	s.mu.Unlock()

	if s.callbacks.OnCancelled != nil {
		s.callbacks.OnCancelled(ctx, o.OrderID)
	}
	return nil
}

// Wait 等待所有在途回报完成，测试与优雅停机使用
func (s *Sim) Wait() {
	s.wg.Wait()
}
