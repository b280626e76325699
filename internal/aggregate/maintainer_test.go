package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/motorline/catalog-service/internal/entity"
)

// fakeParentStore simulates the store's atomic counter: the whole increment
// happens under one lock, matching $inc semantics.
type fakeParentStore struct {
	mu     sync.Mutex
	counts map[string]int
	fail   bool
}

func newFakeParentStore() *fakeParentStore {
	return &fakeParentStore{counts: make(map[string]int)}
}

func (s *fakeParentStore) IncrementCarCount(_ context.Context, kind entity.ParentKind, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store unavailable")
	}
	s.counts[string(kind)+"/"+id] += delta
	return nil
}

func (s *fakeParentStore) count(kind entity.ParentKind, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[string(kind)+"/"+id]
}

func testCar(brandID, modelID, vendorID string) *entity.Car {
	return &entity.Car{
		Brand:    entity.EntityRef{ID: brandID, Name: "Brand"},
		Model:    entity.EntityRef{ID: modelID, Name: "Model"},
		VendorID: vendorID,
	}
}

func TestMaintainer_CreateThenDeleteNetCount(t *testing.T) {
	store := newFakeParentStore()
	m := NewMaintainer(store, zap.NewNop(), nil, 256, 4)

	const creates, deletes = 40, 15
	car := testCar("b1", "m1", "v1")

	var wg sync.WaitGroup
	for i := 0; i < creates; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.CarCreated(car)
		}()
	}
	for i := 0; i < deletes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.CarDeleted(car)
		}()
	}
	wg.Wait()
	m.Close()

	assert.Equal(t, creates-deletes, store.count(entity.ParentBrand, "b1"))
	assert.Equal(t, creates-deletes, store.count(entity.ParentModel, "m1"))
	assert.Equal(t, creates-deletes, store.count(entity.ParentVendor, "v1"))
}

func TestMaintainer_UpdateAdjustsOnlyChangedRefs(t *testing.T) {
	store := newFakeParentStore()
	m := NewMaintainer(store, zap.NewNop(), nil, 16, 1)

	prev := testCar("brand-a", "m1", "v1")
	next := testCar("brand-b", "m1", "v1")

	m.CarUpdated(prev, next)
	m.Close()

	assert.Equal(t, -1, store.count(entity.ParentBrand, "brand-a"))
	assert.Equal(t, 1, store.count(entity.ParentBrand, "brand-b"))
	assert.Equal(t, 0, store.count(entity.ParentModel, "m1"))
	assert.Equal(t, 0, store.count(entity.ParentVendor, "v1"))
}

func TestMaintainer_UpdateWithNoRefChangesWritesNothing(t *testing.T) {
	store := newFakeParentStore()
	m := NewMaintainer(store, zap.NewNop(), nil, 16, 1)

	car := testCar("b1", "m1", "v1")
	m.CarUpdated(car, car)
	m.Close()

	assert.Empty(t, store.counts)
}

func TestMaintainer_StoreFailureIsSwallowed(t *testing.T) {
	store := newFakeParentStore()
	store.fail = true
	m := NewMaintainer(store, zap.NewNop(), nil, 16, 2)

	// Must not panic or surface anywhere; the mutation path never sees it.
	m.CarCreated(testCar("b1", "m1", "v1"))
	m.Close()

	assert.Empty(t, store.counts)
}

func TestMaintainer_AdjustSynchronous(t *testing.T) {
	store := newFakeParentStore()
	m := NewMaintainer(store, zap.NewNop(), nil, 16, 1)
	defer m.Close()

	err := m.Adjust(context.Background(), entity.ParentBrand, "b1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, store.count(entity.ParentBrand, "b1"))

	store.fail = true
	err = m.Adjust(context.Background(), entity.ParentBrand, "b1", 1)
	assert.Error(t, err)
}

func TestMaintainer_SkipsEmptyParentID(t *testing.T) {
	store := newFakeParentStore()
	m := NewMaintainer(store, zap.NewNop(), nil, 16, 1)

	m.Enqueue(entity.ParentBrand, "", 1)
	m.Close()

	assert.Empty(t, store.counts)
}
