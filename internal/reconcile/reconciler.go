// Package reconcile 定时核对 ID 分配器高水位与存储中的最大订单 ID。
// 外部写入（如另一进程导入的历史订单）可能越过分配器的高水位，
// 不核对会导致重复分配。
package reconcile

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/petertoman80/trade-frame/pkg/errors"
	"github.com/petertoman80/trade-frame/pkg/logger"
)

// MaxOrderIDSource 存储侧的最大订单 ID，*repository.Store 实现
type MaxOrderIDSource interface {
	MaxOrderID(ctx context.Context) (int64, error)
}

// Observer ID 分配器的核对入口，*idgen.Allocator 实现
type Observer interface {
	Observe(ctx context.Context, externalID int64) (int64, error)
}

// Reconciler 按 cron 表达式周期性核对
type Reconciler struct {
	source   MaxOrderIDSource
	observer Observer
	log      *logger.Logger
	cron     *cron.Cron
	spec     string
}

// New 创建核对器。spec 为标准五段 cron 表达式。
func New(source MaxOrderIDSource, observer Observer, spec string, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{
		source:   source,
		observer: observer,
		log:      log,
		spec:     spec,
	}
}

// RunOnce 执行一次核对
func (r *Reconciler) RunOnce(ctx context.Context) error {
	maxID, err := r.source.MaxOrderID(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "query max order id", err)
	}
	if maxID == 0 {
		return nil
	}
	prev, err := r.observer.Observe(ctx, maxID)
	if err != nil {
		return err
	}
	if maxID > prev {
		r.log.Warnf("allocator high-water behind store, adopted", map[string]interface{}{
			"storeMax":  maxID,
			"highWater": prev,
		})
	}
	return nil
}

// Start 先同步核对一次，再按计划周期执行。核对失败只记录，不中止计划。
func (r *Reconciler) Start(ctx context.Context) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(r.spec)
	if err != nil {
		return errors.Wrap(errors.CodeInvalidParam, "parse cron spec", err)
	}

	if err := r.RunOnce(ctx); err != nil {
		return err
	}

	r.cron = cron.New(cron.WithParser(parser))
	r.cron.Schedule(schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if err := r.RunOnce(ctx); err != nil {
			r.log.WithError(err).Error("scheduled id reconciliation failed")
		}
	}))
	r.cron.Start()
	return nil
}

// Stop 停止计划任务
func (r *Reconciler) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}
