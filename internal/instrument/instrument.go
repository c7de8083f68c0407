// Package instrument 合约参考数据
package instrument

import (
	"context"

	"github.com/shopspring/decimal"
)

// Instrument 可交易合约的参考数据
type Instrument struct {
	InstrumentID string
	Symbol       string
	Exchange     string
	Multiplier   int
	MinTick      decimal.Decimal
}

// Resolver 合约解析回调。订单从存储恢复时必须配置。
type Resolver interface {
	Resolve(ctx context.Context, instrumentID string) (*Instrument, error)
}

// ResolverFunc 函数适配器
type ResolverFunc func(ctx context.Context, instrumentID string) (*Instrument, error)

func (f ResolverFunc) Resolve(ctx context.Context, instrumentID string) (*Instrument, error) {
	return f(ctx, instrumentID)
}
