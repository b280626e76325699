// Package aggregate keeps the denormalized listing counters on brand, model
// and vendor documents in step with car mutations. Adjustments are dispatched
// onto a bounded queue drained by background workers: the car write never
// waits on, and never fails because of, a counter update. A dropped delta is
// logged and counted so the drift is visible, not silent.
package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/platform/metrics"
)

// ParentStore is the slice of the parent repository the maintainer needs.
type ParentStore interface {
	IncrementCarCount(ctx context.Context, kind entity.ParentKind, id string, delta int) error
}

type adjustment struct {
	kind  entity.ParentKind
	id    string
	delta int
}

type Maintainer struct {
	store     ParentStore
	logger    *zap.Logger
	metrics   *metrics.Manager
	queue     chan adjustment
	opTimeout time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
}

const (
	DefaultQueueSize = 1024
	DefaultWorkers   = 4
	defaultOpTimeout = 5 * time.Second
)

// NewMaintainer starts the worker pool immediately. m may be nil when metrics
// are not wired (tests).
func NewMaintainer(store ParentStore, logger *zap.Logger, m *metrics.Manager, queueSize, workers int) *Maintainer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	mt := &Maintainer{
		store:     store,
		logger:    logger,
		metrics:   m,
		queue:     make(chan adjustment, queueSize),
		opTimeout: defaultOpTimeout,
	}

	mt.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go mt.worker()
	}
	return mt
}

func (m *Maintainer) worker() {
	defer m.wg.Done()
	for adj := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
		err := m.Adjust(ctx, adj.kind, adj.id, adj.delta)
		cancel()
		if err != nil {
			m.logger.Error("Aggregate adjustment failed, count will drift",
				zap.String("kind", string(adj.kind)),
				zap.String("parent_id", adj.id),
				zap.Int("delta", adj.delta),
				zap.Error(err),
			)
			m.countFailure(adj.kind)
		}
	}
}

// Adjust applies a single atomic counter delta synchronously. Workers call it
// off the queue; it is exported for callers that need the result.
func (m *Maintainer) Adjust(ctx context.Context, kind entity.ParentKind, id string, delta int) error {
	if err := m.store.IncrementCarCount(ctx, kind, id, delta); err != nil {
		return fmt.Errorf("Maintainer.Adjust: increment %s %s by %d: %w", kind, id, delta, err)
	}
	if m.metrics != nil {
		m.metrics.AdjustmentsAppliedTotal.WithLabelValues(string(kind)).Inc()
	}
	return nil
}

// Enqueue hands an adjustment to the worker pool without blocking. When the
// queue is full the delta is dropped and counted as drift.
func (m *Maintainer) Enqueue(kind entity.ParentKind, id string, delta int) {
	if id == "" {
		return
	}
	select {
	case m.queue <- adjustment{kind: kind, id: id, delta: delta}:
	default:
		m.logger.Error("Aggregate adjustment queue full, dropping delta",
			zap.String("kind", string(kind)),
			zap.String("parent_id", id),
			zap.Int("delta", delta),
		)
		m.countFailure(kind)
	}
}

// CarCreated increments every parent the new car references.
func (m *Maintainer) CarCreated(car *entity.Car) {
	m.Enqueue(entity.ParentBrand, car.Brand.ID, +1)
	m.Enqueue(entity.ParentModel, car.Model.ID, +1)
	m.Enqueue(entity.ParentVendor, car.VendorID, +1)
}

// CarDeleted reverses the deleted car's contribution.
func (m *Maintainer) CarDeleted(car *entity.Car) {
	m.Enqueue(entity.ParentBrand, car.Brand.ID, -1)
	m.Enqueue(entity.ParentModel, car.Model.ID, -1)
	m.Enqueue(entity.ParentVendor, car.VendorID, -1)
}

// CarUpdated compares parent references field by field and adjusts only the
// ones that changed. Unchanged references get no writes.
func (m *Maintainer) CarUpdated(prev, next *entity.Car) {
	if prev.Brand.ID != next.Brand.ID {
		m.Enqueue(entity.ParentBrand, prev.Brand.ID, -1)
		m.Enqueue(entity.ParentBrand, next.Brand.ID, +1)
	}
	if prev.Model.ID != next.Model.ID {
		m.Enqueue(entity.ParentModel, prev.Model.ID, -1)
		m.Enqueue(entity.ParentModel, next.Model.ID, +1)
	}
	if prev.VendorID != next.VendorID {
		m.Enqueue(entity.ParentVendor, prev.VendorID, -1)
		m.Enqueue(entity.ParentVendor, next.VendorID, +1)
	}
}

// Close stops accepting work and waits for the queue to drain.
func (m *Maintainer) Close() {
	m.closeOnce.Do(func() {
		close(m.queue)
	})
	m.wg.Wait()
}

func (m *Maintainer) countFailure(kind entity.ParentKind) {
	if m.metrics != nil {
		m.metrics.AdjustmentFailuresTotal.WithLabelValues(string(kind)).Inc()
	}
}
