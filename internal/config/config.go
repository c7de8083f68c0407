// Package config 配置
package config

import (
	"fmt"
	"time"

	"github.com/petertoman80/trade-frame/internal/repository"
	"github.com/petertoman80/trade-frame/pkg/config"
)

// Config 服务配置
type Config struct {
	ServiceName string
	HTTPPort    int

	// 存储：postgres 或 sqlite
	DBDriver   string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Redis 事件出口，空地址表示关闭
	RedisAddr     string
	RedisPassword string
	EventChannel  string

	// ID 核对计划
	ReconcileCron string

	// 模拟路由商
	SimFillDelay time.Duration
	SimRefPrice  string
}

// Load 加载配置
func Load() *Config {
	return &Config{
		ServiceName: config.GetEnv("SERVICE_NAME", "trade-frame"),
		HTTPPort:    config.GetEnvInt("HTTP_PORT", 8091),

		DBDriver:   config.GetEnv("DB_DRIVER", repository.DriverSQLite),
		DBHost:     config.GetEnv("DB_HOST", "localhost"),
		DBPort:     config.GetEnvInt("DB_PORT", 5436),
		DBUser:     config.GetEnv("DB_USER", "trade"),
		DBPassword: config.GetEnv("DB_PASSWORD", "trade123"),
		DBName:     config.GetEnv("DB_NAME", "trade"),
		SQLitePath: config.GetEnv("SQLITE_PATH", "trade-frame.db"),

		RedisAddr:     config.GetEnv("REDIS_ADDR", ""),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		EventChannel:  config.GetEnv("EVENT_CHANNEL", "orders:{symbol}:events"),

		ReconcileCron: config.GetEnv("RECONCILE_CRON", "*/5 * * * *"),

		SimFillDelay: config.GetEnvDuration("SIM_FILL_DELAY", 50*time.Millisecond),
		SimRefPrice:  config.GetEnv("SIM_REF_PRICE", "100"),
	}
}

// DSN 按驱动生成连接串
func (c *Config) DSN() string {
	if c.DBDriver == repository.DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}
