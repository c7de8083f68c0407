package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/petertoman80/trade-frame/internal/config"
	"github.com/petertoman80/trade-frame/internal/events"
	"github.com/petertoman80/trade-frame/internal/idgen"
	"github.com/petertoman80/trade-frame/internal/instrument"
	"github.com/petertoman80/trade-frame/internal/manager"
	"github.com/petertoman80/trade-frame/internal/metrics"
	"github.com/petertoman80/trade-frame/internal/order"
	"github.com/petertoman80/trade-frame/internal/provider"
	"github.com/petertoman80/trade-frame/internal/reconcile"
	"github.com/petertoman80/trade-frame/internal/repository"
	"github.com/petertoman80/trade-frame/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, os.Stdout)
	log.Infof("starting", map[string]interface{}{"driver": cfg.DBDriver, "port": cfg.HTTPPort})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 存储
	driverName := cfg.DBDriver
	if driverName == repository.DriverSQLite {
		driverName = "sqlite"
	}
	db, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		log.WithError(err).Error("open database")
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Error("ping database")
		os.Exit(1)
	}

	store, err := repository.NewStore(db, cfg.DBDriver)
	if err != nil {
		log.WithError(err).Error("create store")
		os.Exit(1)
	}
	if err := store.RegisterSchema(ctx); err != nil {
		log.WithError(err).Error("register schema")
		os.Exit(1)
	}
	log.Info("store ready")

	// 合约参考数据：单机演示用静态表
	resolver := staticResolver()

	m := metrics.New()
	alloc := idgen.New(store)
	om := manager.New(alloc, store, resolver, log, m)

	// 可选 Redis 事件出口
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Error("ping redis")
			os.Exit(1)
		}
		om.SetPublisher(events.NewPublisher(redisClient, cfg.EventChannel))
		log.Info("redis event publisher ready")
	}

	// ID 核对：启动即核对一次，之后按计划执行
	rec := reconcile.New(store, alloc, cfg.ReconcileCron, log)
	if err := rec.Start(ctx); err != nil {
		log.WithError(err).Error("start reconciler")
		os.Exit(1)
	}
	defer rec.Stop()

	// 模拟路由商，回报接回管理器
	refPrice, err := decimal.NewFromString(cfg.SimRefPrice)
	if err != nil {
		log.WithError(err).Error("parse sim ref price")
		os.Exit(1)
	}
	sim := provider.NewSim("sim", cfg.SimFillDelay, refPrice, provider.Callbacks{
		OnExecution: func(ctx context.Context, orderID int64, exec *order.Execution) {
			if r := om.ReportExecution(ctx, orderID, exec); r.Err != nil {
				log.WithError(r.Err).WithOrderID(orderID).Error("report execution")
			}
		},
		OnCancelled: func(ctx context.Context, orderID int64) {
			if r := om.ReportCancellation(ctx, orderID); r.Err != nil {
				log.WithError(r.Err).WithOrderID(orderID).Error("report cancellation")
			}
		},
		OnError: func(ctx context.Context, orderID int64, kind order.ErrorKind) {
			if r := om.ReportError(ctx, orderID, kind); r.Err != nil {
				log.WithError(r.Err).WithOrderID(orderID).Error("report error")
			}
		},
	})

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("/metrics", m.Handler())

	mux.HandleFunc("/v1/order", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handleCreateOrder(w, r, om, sim, resolver)
		case http.MethodDelete:
			handleCancelOrder(w, r, om)
		case http.MethodGet:
			handleGetOrder(w, r, om)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: mux,
	}

	go func() {
		log.Infof("http server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()
	sim.Wait()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	log.Info("shutdown complete")
}

// staticResolver 演示用的静态合约表
func staticResolver() instrument.Resolver {
	table := map[string]*instrument.Instrument{
		"ES-202609": {InstrumentID: "ES-202609", Symbol: "ES", Exchange: "CME", Multiplier: 50, MinTick: decimal.RequireFromString("0.25")},
		"NQ-202609": {InstrumentID: "NQ-202609", Symbol: "NQ", Exchange: "CME", Multiplier: 20, MinTick: decimal.RequireFromString("0.25")},
		"GC-202612": {InstrumentID: "GC-202612", Symbol: "GC", Exchange: "COMEX", Multiplier: 100, MinTick: decimal.RequireFromString("0.10")},
	}
	return instrument.ResolverFunc(func(_ context.Context, id string) (*instrument.Instrument, error) {
		inst, ok := table[id]
		if !ok {
			return nil, fmt.Errorf("unknown instrument %s", id)
		}
		return inst, nil
	})
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	InstrumentID string `json:"instrumentId"`
	Side         string `json:"side"`
	Type         string `json:"type"`
	Quantity     int64  `json:"quantity"`
	Price        string `json:"price"`
	StopPrice    string `json:"stopPrice"`
	PositionID   int64  `json:"positionId"`
}

func handleCreateOrder(w http.ResponseWriter, r *http.Request, om *manager.OrderManager, p provider.Provider, resolver instrument.Resolver) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inst, err := resolver.Resolve(r.Context(), req.InstrumentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	side := order.SideBuy
	if req.Side == "SELL" {
		side = order.SideSell
	}

	parsePrice := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stopPrice, err := parsePrice(req.StopPrice)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var o *order.Order
	switch req.Type {
	case "MARKET":
		o, err = om.ConstructMarketOrder(r.Context(), inst, side, req.Quantity, req.PositionID)
	case "LIMIT":
		o, err = om.ConstructLimitOrder(r.Context(), inst, side, req.Quantity, price, req.PositionID)
	case "STOP":
		o, err = om.ConstructStopOrder(r.Context(), inst, side, req.Quantity, price, req.PositionID)
	case "STOP_LIMIT":
		o, err = om.ConstructStopLimitOrder(r.Context(), inst, side, req.Quantity, price, stopPrice, req.PositionID)
	default:
		http.Error(w, "unknown order type", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := om.Place(r.Context(), p, o); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orderResponse(o))
}

func handleCancelOrder(w http.ResponseWriter, r *http.Request, om *manager.OrderManager) {
	orderID, err := strconv.ParseInt(r.URL.Query().Get("orderId"), 10, 64)
	if err != nil {
		http.Error(w, "orderId required", http.StatusBadRequest)
		return
	}
	if res := om.Cancel(r.Context(), orderID); res.Err != nil {
		http.Error(w, res.Err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func handleGetOrder(w http.ResponseWriter, r *http.Request, om *manager.OrderManager) {
	orderID, err := strconv.ParseInt(r.URL.Query().Get("orderId"), 10, 64)
	if err != nil {
		http.Error(w, "orderId required", http.StatusBadRequest)
		return
	}
	st, err := om.Locate(r.Context(), orderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orderResponse(st.Order))
}

func orderResponse(o *order.Order) map[string]interface{} {
	return map[string]interface{}{
		"orderId":           o.OrderID,
		"instrumentId":      o.InstrumentID,
		"positionId":        o.PositionID,
		"status":            o.Status.String(),
		"quantity":          o.Quantity,
		"quantityFilled":    o.QuantityFilled,
		"quantityRemaining": o.QuantityRemaining,
		"averageFillPrice":  o.AverageFillPrice.String(),
		"commission":        o.Commission.String(),
	}
}
