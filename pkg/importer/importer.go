// Package importer groups parsed products into batches per kind and hands
// full batches to storage.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/ruslano69/productimport/pkg/core/product"
)

// Storage persists batches of one product kind
type Storage interface {
	StoreSimpleProducts(ctx context.Context, products []*product.Product) error
	StoreConfigurableProducts(ctx context.Context, products []*product.Product) error
}

// FlushObserver is told about every flush that reached storage
type FlushObserver interface {
	ObserveFlush(kind product.Kind, size int, d time.Duration)
}

// Stats counts the work of an importer
type Stats struct {
	Inserted int
	Flushes  int
}

// Importer is the batch accumulator of a run. It is not safe for concurrent use.
type Importer struct {
	storage   Storage
	batchSize int
	observers []FlushObserver
	now       func() time.Time

	simple       []*product.Product
	configurable []*product.Product

	stats Stats
}

// Option configures an Importer
type Option func(*Importer)

// WithFlushObserver adds a flush observer
func WithFlushObserver(o FlushObserver) Option {
	return func(imp *Importer) { imp.observers = append(imp.observers, o) }
}

// NewImporter creates an importer; cfg must carry a positive batch size
func NewImporter(storage Storage, cfg Config, opts ...Option) (*Importer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	imp := &Importer{
		storage:      storage,
		batchSize:    cfg.BatchSize,
		now:          time.Now,
		simple:       make([]*product.Product, 0, cfg.BatchSize),
		configurable: make([]*product.Product, 0, cfg.BatchSize),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp, nil
}

// Insert buffers p and flushes its buffer once it holds BatchSize products.
// A configurable batch is preceded by a flush of the pending simple products,
// which its variants may be among.
func (imp *Importer) Insert(ctx context.Context, p *product.Product) error {
	imp.stats.Inserted++

	switch p.Kind {
	case product.KindSimple:
		imp.simple = append(imp.simple, p)
		if len(imp.simple) == imp.batchSize {
			return imp.flushSimple(ctx)
		}
	case product.KindConfigurable:
		imp.configurable = append(imp.configurable, p)
		if len(imp.configurable) == imp.batchSize {
			if err := imp.flushSimple(ctx); err != nil {
				return err
			}
			return imp.flushConfigurable(ctx)
		}
	default:
		return fmt.Errorf("unsupported product kind %s for %s", p.Kind, p.SKU())
	}
	return nil
}

// Flush drains every non-empty buffer, simple products first. Calling it on
// empty buffers does nothing.
func (imp *Importer) Flush(ctx context.Context) error {
	if err := imp.flushSimple(ctx); err != nil {
		return err
	}
	return imp.flushConfigurable(ctx)
}

// Pending returns the number of buffered products
func (imp *Importer) Pending() int {
	return len(imp.simple) + len(imp.configurable)
}

// Stats returns the counters of the importer
func (imp *Importer) Stats() Stats { return imp.stats }

func (imp *Importer) flushSimple(ctx context.Context) error {
	batch := imp.simple
	if len(batch) == 0 {
		return nil
	}
	imp.simple = imp.simple[:0:0]
	return imp.flush(ctx, product.KindSimple, batch, imp.storage.StoreSimpleProducts)
}

func (imp *Importer) flushConfigurable(ctx context.Context) error {
	batch := imp.configurable
	if len(batch) == 0 {
		return nil
	}
	imp.configurable = imp.configurable[:0:0]
	return imp.flush(ctx, product.KindConfigurable, batch, imp.storage.StoreConfigurableProducts)
}

// flush clears the buffer before storing, so a failed batch is never retried
func (imp *Importer) flush(ctx context.Context, kind product.Kind, batch []*product.Product,
	store func(context.Context, []*product.Product) error) error {

	start := imp.now()
	if err := store(ctx, batch); err != nil {
		return fmt.Errorf("failed to store %d %s products: %w", len(batch), kind, err)
	}

	imp.stats.Flushes++
	for _, o := range imp.observers {
		o.ObserveFlush(kind, len(batch), imp.now().Sub(start))
	}
	return nil
}
