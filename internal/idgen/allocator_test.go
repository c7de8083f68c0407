package idgen

import (
	"context"
	"errors"
	"sync"
	"testing"

	pkgerrors "github.com/petertoman80/trade-frame/pkg/errors"
)

type failingStore struct {
	hw       int64
	failSave bool
	failLoad bool
	saves    int
}

func (s *failingStore) LoadHighWater(_ context.Context) (int64, error) {
	if s.failLoad {
		return 0, errors.New("load failed")
	}
	return s.hw, nil
}

func (s *failingStore) SaveHighWater(_ context.Context, id int64) error {
	if s.failSave {
		return errors.New("save failed")
	}
	s.saves++
	s.hw = id
	return nil
}

func TestNextIDMonotonic(t *testing.T) {
	ctx := context.Background()
	a := New(NewMemoryStore())

	var last int64
	for i := 0; i < 100; i++ {
		id, err := a.NextID(ctx)
		if err != nil {
			t.Fatalf("next id: %v", err)
		}
		if id <= last {
			t.Fatalf("expected id > %d, got %d", last, id)
		}
		last = id
	}
}

func TestNextIDResumesFromHighWater(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{hw: 500}
	a := New(store)

	id, err := a.NextID(ctx)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != 501 {
		t.Fatalf("expected 501, got %d", id)
	}
	if store.hw != 501 {
		t.Fatalf("expected high-water persisted as 501, got %d", store.hw)
	}
}

func TestNextIDPersistFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{hw: 10}
	a := New(store)

	if _, err := a.NextID(ctx); err != nil {
		t.Fatalf("warm up: %v", err)
	}

	store.failSave = true
	if _, err := a.NextID(ctx); pkgerrors.CodeOf(err) != pkgerrors.CodeStoreFailure {
		t.Fatalf("expected STORE_FAILURE, got %v", err)
	}

	// counter must not have advanced past the durable record
	store.failSave = false
	id, err := a.NextID(ctx)
	if err != nil {
		t.Fatalf("next id after recovery: %v", err)
	}
	if id != 12 {
		t.Fatalf("expected 12, got %d", id)
	}
}

func TestNextIDLoadFailureIsFatal(t *testing.T) {
	a := New(&failingStore{failLoad: true})
	if _, err := a.NextID(context.Background()); pkgerrors.CodeOf(err) != pkgerrors.CodeStoreFailure {
		t.Fatalf("expected STORE_FAILURE, got %v", err)
	}
}

func TestObserve(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{hw: 100}
	a := New(store)

	// lower id: no change
	prev, err := a.Observe(ctx, 50)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if prev != 100 {
		t.Fatalf("expected prev 100, got %d", prev)
	}
	if store.saves != 0 {
		t.Fatal("lower observation must not persist")
	}

	// higher id: adopt
	prev, err = a.Observe(ctx, 200)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if prev != 100 {
		t.Fatalf("expected prev 100, got %d", prev)
	}

	id, err := a.NextID(ctx)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != 201 {
		t.Fatalf("expected 201 after adopting 200, got %d", id)
	}
}

func TestObservedIDNeverReissued(t *testing.T) {
	ctx := context.Background()
	a := New(NewMemoryStore())

	issued := make(map[int64]bool)
	for i := 0; i < 10; i++ {
		id, err := a.NextID(ctx)
		if err != nil {
			t.Fatalf("next id: %v", err)
		}
		issued[id] = true
	}
	if _, err := a.Observe(ctx, 5); err != nil {
		t.Fatalf("observe: %v", err)
	}
	id, err := a.NextID(ctx)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if issued[id] {
		t.Fatalf("id %d reissued", id)
	}
}

func TestConcurrentNextIDUnique(t *testing.T) {
	ctx := context.Background()
	a := New(NewMemoryStore())

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	ids := make(chan int64, goroutines*perGoroutine)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id, err := a.NextID(ctx)
				if err != nil {
					t.Errorf("next id: %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != goroutines*perGoroutine {
		t.Fatalf("expected %d unique ids, got %d", goroutines*perGoroutine, len(seen))
	}
}
