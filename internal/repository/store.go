// Package repository 订单持久化层
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("duplicate order id")
)

// 支持的驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// OrderRow 订单行。价格与金额列按 DECIMAL 文本存取，
// 时间戳为毫秒，0 表示未设置。
type OrderRow struct {
	OrderID             int64
	InstrumentID        string
	PositionID          int64
	Type                int
	Side                int
	Quantity            int64
	Price1              string
	Price2              string
	Status              int
	QuantityFilled      int64
	QuantityRemaining   int64
	AverageFillPrice    string
	Commission          string
	DateTimeSubmittedMs int64
	DateTimeClosedMs    int64
}

// ExecutionRow 成交行。ExecutionID 由存储生成。
type ExecutionRow struct {
	ExecutionID int64
	OrderID     int64
	Quantity    int64
	Price       string
	TimestampMs int64
}

// Store 基于 database/sql 的存储适配器，支持 postgres 与 sqlite。
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore 创建存储适配器
func NewStore(db *sql.DB, driver string) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return &Store{db: db, driver: driver}, nil
}

// InsertOrder 插入订单行
func (s *Store) InsertOrder(ctx context.Context, row *OrderRow) error {
	query := `
		INSERT INTO orders
		(order_id, instrument_id, position_id, type, side, quantity,
		 price1, price2, status, quantity_filled, quantity_remaining,
		 average_fill_price, commission, datetime_submitted_ms, datetime_closed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		row.OrderID, row.InstrumentID, row.PositionID, row.Type, row.Side, row.Quantity,
		row.Price1, row.Price2, row.Status, row.QuantityFilled, row.QuantityRemaining,
		row.AverageFillPrice, row.Commission,
		nullInt64(row.DateTimeSubmittedMs), nullInt64(row.DateTimeClosedMs),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrderID
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder 按订单 ID 查询
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*OrderRow, error) {
	query := `
		SELECT order_id, instrument_id, position_id, type, side, quantity,
		       price1, price2, status, quantity_filled, quantity_remaining,
		       average_fill_price, commission, datetime_submitted_ms, datetime_closed_ms
		FROM orders
		WHERE order_id = $1
	`
	var row OrderRow
	var submittedMs, closedMs sql.NullInt64

	err := s.db.QueryRowContext(ctx, query, orderID).Scan(
		&row.OrderID, &row.InstrumentID, &row.PositionID, &row.Type, &row.Side, &row.Quantity,
		&row.Price1, &row.Price2, &row.Status, &row.QuantityFilled, &row.QuantityRemaining,
		&row.AverageFillPrice, &row.Commission, &submittedMs, &closedMs,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	row.DateTimeSubmittedMs = submittedMs.Int64
	row.DateTimeClosedMs = closedMs.Int64
	return &row, nil
}

// UpdateOrderPlaced 下单后更新状态与提交时间
func (s *Store) UpdateOrderPlaced(ctx context.Context, orderID int64, status int, submittedMs int64) error {
	query := `
		UPDATE orders
		SET status = $1, datetime_submitted_ms = $2
		WHERE order_id = $3
	`
	return s.execOne(ctx, "update order placed", query, status, submittedMs, orderID)
}

// UpdateOrderClosed 关单（撤单/错误）后更新状态与关闭时间
func (s *Store) UpdateOrderClosed(ctx context.Context, orderID int64, status int, closedMs int64) error {
	query := `
		UPDATE orders
		SET status = $1, datetime_closed_ms = $2
		WHERE order_id = $3
	`
	return s.execOne(ctx, "update order closed", query, status, nullInt64(closedMs), orderID)
}

// UpdateOrderCommission 更新佣金
func (s *Store) UpdateOrderCommission(ctx context.Context, orderID int64, commission string) error {
	query := `
		UPDATE orders
		SET commission = $1
		WHERE order_id = $2
	`
	return s.execOne(ctx, "update order commission", query, commission, orderID)
}

// UpdateOrderFill 成交后更新聚合字段
func (s *Store) UpdateOrderFill(ctx context.Context, orderID int64, status int, quantityRemaining, quantityFilled int64, averageFillPrice string, closedMs int64) error {
	query := `
		UPDATE orders
		SET status = $1, quantity_remaining = $2, quantity_filled = $3,
		    average_fill_price = $4, datetime_closed_ms = $5
		WHERE order_id = $6
	`
	return s.execOne(ctx, "update order fill", query,
		status, quantityRemaining, quantityFilled, averageFillPrice, nullInt64(closedMs), orderID)
}

// InsertExecution 插入成交行并返回存储生成的 execution_id
func (s *Store) InsertExecution(ctx context.Context, row *ExecutionRow) (int64, error) {
	if s.driver == DriverPostgres {
		query := `
			INSERT INTO executions (order_id, quantity, price, timestamp_ms)
			VALUES ($1, $2, $3, $4)
			RETURNING execution_id
		`
		var id int64
		err := s.db.QueryRowContext(ctx, query, row.OrderID, row.Quantity, row.Price, row.TimestampMs).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert execution: %w", err)
		}
		return id, nil
	}

	query := `
		INSERT INTO executions (order_id, quantity, price, timestamp_ms)
		VALUES ($1, $2, $3, $4)
	`
	result, err := s.db.ExecContext(ctx, query, row.OrderID, row.Quantity, row.Price, row.TimestampMs)
	if err != nil {
		return 0, fmt.Errorf("insert execution: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("execution id: %w", err)
	}
	return id, nil
}

// ListExecutions 加载订单的全部成交
func (s *Store) ListExecutions(ctx context.Context, orderID int64) ([]*ExecutionRow, error) {
	query := `
		SELECT execution_id, order_id, quantity, price, timestamp_ms
		FROM executions
		WHERE order_id = $1
		ORDER BY execution_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []*ExecutionRow
	for rows.Next() {
		var row ExecutionRow
		if err := rows.Scan(&row.ExecutionID, &row.OrderID, &row.Quantity, &row.Price, &row.TimestampMs); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		executions = append(executions, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return executions, nil
}

// MaxOrderID 存储中最大的订单 ID，无订单时返回 0。对账任务使用。
func (s *Store) MaxOrderID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(order_id) FROM orders`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max order id: %w", err)
	}
	return max.Int64, nil
}

// LoadHighWater 读取订单 ID 高水位，实现 idgen.Store
func (s *Store) LoadHighWater(ctx context.Context) (int64, error) {
	var hw int64
	err := s.db.QueryRowContext(ctx, `SELECT current_id FROM order_ids WHERE name = $1`, idCounterName).Scan(&hw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load high-water: %w", err)
	}
	return hw, nil
}

// SaveHighWater 落盘订单 ID 高水位，实现 idgen.Store
func (s *Store) SaveHighWater(ctx context.Context, id int64) error {
	query := `
		INSERT INTO order_ids (name, current_id) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET current_id = excluded.current_id
	`
	if _, err := s.db.ExecContext(ctx, query, idCounterName, id); err != nil {
		return fmt.Errorf("save high-water: %w", err)
	}
	return nil
}

const idCounterName = "orderId"

func (s *Store) execOne(ctx context.Context, what, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func nullInt64(i int64) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
