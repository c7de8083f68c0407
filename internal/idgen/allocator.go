// Package idgen 订单 ID 分配器
package idgen

import (
	"context"
	"math"
	"sync"

	"github.com/petertoman80/trade-frame/pkg/errors"
)

// Store 高水位持久化端口。SaveHighWater 必须在新 ID 交付调用方之前成功，
// 否则进程重启后会重新派发同一批 ID。
type Store interface {
	LoadHighWater(ctx context.Context) (int64, error)
	SaveHighWater(ctx context.Context, id int64) error
}

// Allocator 单调递增的订单 ID 分配器。
// NextID 与 Observe 共用一把锁，互相原子。
type Allocator struct {
	mu      sync.Mutex
	store   Store
	current int64
	loaded  bool
}

// New 创建分配器
func New(store Store) *Allocator {
	return &Allocator{store: store}
}

func (a *Allocator) load(ctx context.Context) error {
	if a.loaded {
		return nil
	}
	hw, err := a.store.LoadHighWater(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "load id high-water mark", err)
	}
	a.current = hw
	a.loaded = true
	return nil
}

// NextID 返回严格大于所有已派发或已观察到的 ID 的新 ID。
// 新高水位在返回之前落盘；落盘失败则本次分配失败，计数器不前进。
func (a *Allocator) NextID(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.load(ctx); err != nil {
		return 0, err
	}
	if a.current == math.MaxInt64 {
		return 0, errors.New(errors.CodeIDExhausted, "order id space exhausted")
	}

	next := a.current + 1
	if err := a.store.SaveHighWater(ctx, next); err != nil {
		return 0, errors.Wrap(errors.CodeStoreFailure, "persist id high-water mark", err)
	}
	a.current = next
	return next, nil
}

// Observe 对账外部观察到的 ID：返回之前的高水位；
// 外部 ID 更大时抬升计数器（先落盘），绝不回退。
func (a *Allocator) Observe(ctx context.Context, externalID int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.load(ctx); err != nil {
		return 0, err
	}

	prev := a.current
	if externalID > a.current {
		if err := a.store.SaveHighWater(ctx, externalID); err != nil {
			return prev, errors.Wrap(errors.CodeStoreFailure, "persist observed high-water mark", err)
		}
		a.current = externalID
	}
	return prev, nil
}

// MemoryStore 纯内存高水位，无存储运行模式使用
type MemoryStore struct {
	mu sync.Mutex
	hw int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadHighWater(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hw, nil
}

func (s *MemoryStore) SaveHighWater(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hw = id
	return nil
}
