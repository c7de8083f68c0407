package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Execution 一笔针对订单的成交记录，创建后不可变。
// ExecutionID 由存储在插入时分配；无存储运行时由 manager
// 以本地负数计数器派发（与存储派发的正数行 ID 永不冲突）。
type Execution struct {
	ExecutionID int64
	OrderID     int64
	Quantity    int64
	Price       decimal.Decimal
	Timestamp   time.Time
}

// NewExecution 构造成交记录，ID 留待存储分配
func NewExecution(orderID int64, quantity int64, price decimal.Decimal, ts time.Time) *Execution {
	return &Execution{
		OrderID:   orderID,
		Quantity:  quantity,
		Price:     price,
		Timestamp: ts,
	}
}
