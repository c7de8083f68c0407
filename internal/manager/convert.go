package manager

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/petertoman80/trade-frame/internal/instrument"
	"github.com/petertoman80/trade-frame/internal/order"
	"github.com/petertoman80/trade-frame/internal/repository"
)

// 实体与存储行的静态映射。时间戳毫秒，0 表示未设置。

func orderToRow(o *order.Order) *repository.OrderRow {
	return &repository.OrderRow{
		OrderID:             o.OrderID,
		InstrumentID:        o.InstrumentID,
		PositionID:          o.PositionID,
		Type:                int(o.Type),
		Side:                int(o.Side),
		Quantity:            o.Quantity,
		Price1:              o.Price1.String(),
		Price2:              o.Price2.String(),
		Status:              int(o.Status),
		QuantityFilled:      o.QuantityFilled,
		QuantityRemaining:   o.QuantityRemaining,
		AverageFillPrice:    o.AverageFillPrice.String(),
		Commission:          o.Commission.String(),
		DateTimeSubmittedMs: msFromTime(o.DateTimeSubmitted),
		DateTimeClosedMs:    msFromTime(o.DateTimeClosed),
	}
}

func rowToOrder(row *repository.OrderRow, inst *instrument.Instrument) (*order.Order, error) {
	price1, err := decimal.NewFromString(row.Price1)
	if err != nil {
		return nil, fmt.Errorf("parse price1: %w", err)
	}
	price2, err := decimal.NewFromString(row.Price2)
	if err != nil {
		return nil, fmt.Errorf("parse price2: %w", err)
	}
	avg, err := decimal.NewFromString(row.AverageFillPrice)
	if err != nil {
		return nil, fmt.Errorf("parse average fill price: %w", err)
	}
	commission, err := decimal.NewFromString(row.Commission)
	if err != nil {
		return nil, fmt.Errorf("parse commission: %w", err)
	}

	return &order.Order{
		OrderID:           row.OrderID,
		InstrumentID:      row.InstrumentID,
		Instrument:        inst,
		PositionID:        row.PositionID,
		Type:              order.Type(row.Type),
		Side:              order.Side(row.Side),
		Quantity:          row.Quantity,
		Price1:            price1,
		Price2:            price2,
		Status:            order.Status(row.Status),
		QuantityFilled:    row.QuantityFilled,
		QuantityRemaining: row.QuantityRemaining,
		AverageFillPrice:  avg,
		Commission:        commission,
		DateTimeSubmitted: timeFromMs(row.DateTimeSubmittedMs),
		DateTimeClosed:    timeFromMs(row.DateTimeClosedMs),
	}, nil
}

func executionToRow(exec *order.Execution) *repository.ExecutionRow {
	return &repository.ExecutionRow{
		ExecutionID: exec.ExecutionID,
		OrderID:     exec.OrderID,
		Quantity:    exec.Quantity,
		Price:       exec.Price.String(),
		TimestampMs: msFromTime(exec.Timestamp),
	}
}

func rowToExecution(row *repository.ExecutionRow) (*order.Execution, error) {
	price, err := decimal.NewFromString(row.Price)
	if err != nil {
		return nil, fmt.Errorf("parse execution price: %w", err)
	}
	return &order.Execution{
		ExecutionID: row.ExecutionID,
		OrderID:     row.OrderID,
		Quantity:    row.Quantity,
		Price:       price,
		Timestamp:   timeFromMs(row.TimestampMs),
	}, nil
}

func msFromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeFromMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
