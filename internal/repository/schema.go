package repository

import (
	"context"
	"fmt"
)

// 订单与成交的建表语句。execution_id 由存储分配：
// postgres 走 BIGSERIAL，sqlite 走 INTEGER PRIMARY KEY 的 rowid 别名。
const (
	schemaOrdersPostgres = `
		CREATE TABLE IF NOT EXISTS orders (
			order_id              BIGINT PRIMARY KEY,
			instrument_id         TEXT NOT NULL,
			position_id           BIGINT NOT NULL,
			type                  INT NOT NULL,
			side                  INT NOT NULL,
			quantity              BIGINT NOT NULL,
			price1                TEXT NOT NULL,
			price2                TEXT NOT NULL,
			status                INT NOT NULL,
			quantity_filled       BIGINT NOT NULL,
			quantity_remaining    BIGINT NOT NULL,
			average_fill_price    TEXT NOT NULL,
			commission            TEXT NOT NULL,
			datetime_submitted_ms BIGINT,
			datetime_closed_ms    BIGINT
		)`

	schemaExecutionsPostgres = `
		CREATE TABLE IF NOT EXISTS executions (
			execution_id BIGSERIAL PRIMARY KEY,
			order_id     BIGINT NOT NULL,
			quantity     BIGINT NOT NULL,
			price        TEXT NOT NULL,
			timestamp_ms BIGINT NOT NULL
		)`

	schemaExecutionsSQLite = `
		CREATE TABLE IF NOT EXISTS executions (
			execution_id INTEGER PRIMARY KEY,
			order_id     BIGINT NOT NULL,
			quantity     BIGINT NOT NULL,
			price        TEXT NOT NULL,
			timestamp_ms BIGINT NOT NULL
		)`

	schemaOrderIDs = `
		CREATE TABLE IF NOT EXISTS order_ids (
			name       TEXT PRIMARY KEY,
			current_id BIGINT NOT NULL
		)`

	schemaExecutionsIndex = `
		CREATE INDEX IF NOT EXISTS idx_executions_order_id ON executions (order_id)`
)

// RegisterSchema 注册订单、成交与 ID 高水位表。启动时调用一次。
func (s *Store) RegisterSchema(ctx context.Context) error {
	executions := schemaExecutionsPostgres
	if s.driver == DriverSQLite {
		executions = schemaExecutionsSQLite
	}

	for _, stmt := range []string{schemaOrdersPostgres, executions, schemaOrderIDs, schemaExecutionsIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("register schema: %w", err)
		}
	}
	return nil
}
