// Package binding is the boundary between a foreign caller and the list
// indexes. The caller holds integer handles only; every entry point
// resolves them through a handle table, runs under fault containment and
// reports failures as *errors.Error values whose Kind the caller can
// branch on.
package binding

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/indexbind/errors"
	"github.com/wippyai/indexbind/resource"
)

// Type IDs of the values a Binding keeps in its handle table.
const (
	TypeDatabase uint32 = iota + 1
	TypeView
	TypeList
	TypeListIterator
)

func typeName(id uint32) string {
	switch id {
	case TypeDatabase:
		return "database"
	case TypeView:
		return "view"
	case TypeList:
		return "list"
	case TypeListIterator:
		return "list_iterator"
	default:
		return "unknown"
	}
}

// Binding exposes databases, views, lists and iterators to a caller that
// only holds integer handles. Every entry point is fault contained: a panic
// inside an operation is returned as a fault error.
type Binding struct {
	table  *resource.Table
	logger *zap.Logger
}

// New returns a Binding over table. A nil logger uses the package logger.
func New(table *resource.Table, logger *zap.Logger) *Binding {
	if logger == nil {
		logger = Logger()
	}
	b := &Binding{table: table, logger: logger}
	table.Subscribe(&lifecycleObserver{logger: logger})
	return b
}

var (
	defaultBinding *Binding
	defaultOnce    sync.Once
)

// Default returns the Binding over the process-wide handle table.
func Default() *Binding {
	defaultOnce.Do(func() {
		defaultBinding = New(resource.Default(), nil)
	})
	return defaultBinding
}

// Table returns the handle table behind b.
func (b *Binding) Table() *resource.Table {
	return b.table
}

// Guard runs fn and turns a panic into a fault error.
func (b *Binding) Guard(op string, fn func() error) error {
	_, err := guard(b, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func guard[T any](b *Binding, op string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = errors.Fault(op, r)
			b.logger.Error("operation panicked",
				zap.String("op", op),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	result, err = fn()
	if err != nil {
		b.failed(op, err)
	}
	return result, err
}

func (b *Binding) failed(op string, err error) {
	var e *errors.Error
	if errors.As(err, &e) && e.Op == "" {
		e.Op = op
	}
	switch {
	case errors.IsFatal(err):
		b.logger.Error("fatal", zap.String("op", op), zap.Error(err))
	default:
		b.logger.Debug("operation failed",
			zap.String("op", op),
			zap.String("kind", string(errors.KindOf(err))),
			zap.Error(err))
	}
}

// Position converts a caller position or length. Negative values are
// rejected before any index is touched.
func Position(v int64) (uint64, error) {
	if v < 0 {
		return 0, errors.NegativeValue("position", v)
	}
	return uint64(v), nil
}

func size(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, errors.Conversion("size does not fit in int64", nil)
	}
	return int64(n), nil
}

func (b *Binding) insert(typeID uint32, v any) (resource.Handle, error) {
	return b.table.Insert(typeID, v)
}

func resolve[T any](b *Binding, h resource.Handle, typeID uint32) (T, error) {
	return resource.Resolve[T](b.table, h, typeID)
}

func (b *Binding) free(h resource.Handle, typeID uint32) error {
	_, err := b.table.RemoveTyped(h, typeID)
	return err
}

type lifecycleObserver struct {
	logger *zap.Logger
}

func (o *lifecycleObserver) OnResourceEvent(e resource.Event) {
	o.logger.Debug("handle "+e.Type.String(),
		zap.Stringer("handle", e.Handle),
		zap.String("type", typeName(e.TypeID)))
}
