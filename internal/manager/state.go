// Package manager 订单管理器：订单注册表、ID 分配、持久化镜像与路由派发
package manager

import (
	"context"
	"sync"

	"github.com/petertoman80/trade-frame/internal/order"
	"github.com/petertoman80/trade-frame/internal/provider"
	"github.com/petertoman80/trade-frame/internal/repository"
)

// Store 订单持久化端口，*repository.Store 实现。
// 为 nil 时管理器以纯内存模式运行。
type Store interface {
	InsertOrder(ctx context.Context, row *repository.OrderRow) error
	GetOrder(ctx context.Context, orderID int64) (*repository.OrderRow, error)
	UpdateOrderPlaced(ctx context.Context, orderID int64, status int, submittedMs int64) error
	UpdateOrderClosed(ctx context.Context, orderID int64, status int, closedMs int64) error
	UpdateOrderCommission(ctx context.Context, orderID int64, commission string) error
	UpdateOrderFill(ctx context.Context, orderID int64, status int, quantityRemaining, quantityFilled int64, averageFillPrice string, closedMs int64) error
	InsertExecution(ctx context.Context, row *repository.ExecutionRow) (int64, error)
	ListExecutions(ctx context.Context, orderID int64) ([]*repository.ExecutionRow, error)
}

// IDGenerator 订单 ID 来源，*idgen.Allocator 实现
type IDGenerator interface {
	NextID(ctx context.Context) (int64, error)
}

// Publisher 订单生命周期事件出口，可选
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event string, o *order.Order) error
}

// OrderState 注册表条目：订单、其路由商与成交映射。
// mu 串行化同一订单上的全部变更；不同订单互不阻塞。
// 注册表是唯一写入方，路由商回报只经由 manager 的操作进入。
type OrderState struct {
	mu       sync.Mutex
	Order    *order.Order
	Provider provider.Provider

	// Executions 以成交 ID 为键。有存储时为存储分配的正数行 ID，
	// 纯内存模式下为 manager 的本地负数计数器。
	Executions map[int64]*order.Execution
}

// ReportResult report 族操作（cancel/commission/execution/error）的结果。
// 这些操作多由路由商回调驱动，没有同步调用方可抛错，因而采取
// 尽力而为策略：内存状态为权威，持久化镜像允许滞后。
// 调用方可以检查但不强制处理。
type ReportResult struct {
	// Err 致命错误：订单不存在、终态拒绝、缺少路由商等。
	// 置位时本次操作未产生任何状态变更。
	Err error

	// StoreErr 持久化滞后：内存状态已更新，落盘失败。
	StoreErr error
}

// Ok 操作完全成功
func (r ReportResult) Ok() bool {
	return r.Err == nil && r.StoreErr == nil
}
