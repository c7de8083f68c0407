// Package provider 订单路由商接口与模拟实现
package provider

import (
	"context"

	"github.com/petertoman80/trade-frame/internal/order"
)

// Provider 执行路由商。Place/Cancel 均为派发语义：调用返回仅代表
// 请求已受理，成交、撤单确认与错误经由 OrderManager 的 report
// 操作异步回报，不得由路由商自行持有可变句柄修改订单。
type Provider interface {
	Name() string
	Place(ctx context.Context, o *order.Order) error
	Cancel(ctx context.Context, o *order.Order) error
}
