// Package pipeline forwards entities produced by the exchange engine to
// host-supplied handlers, one handler per entity kind.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kosarica/cml-exchange/internal/items"
)

// Handler receives entities of one kind and supplies entities for export.
// Implementations must be safe for concurrent use when a dispatcher is
// shared between concurrent imports or exports.
type Handler interface {
	// Submit accepts one fully built entity
	Submit(ctx context.Context, entity items.Entity) error

	// Drain returns the entities waiting for export. The sequence is finite
	// and may only be ranged over once.
	Drain(ctx context.Context) (iter.Seq[items.Entity], error)

	// Finalize acknowledges that the last drained entities were delivered
	Finalize(ctx context.Context) error
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	SubmitFunc   func(ctx context.Context, entity items.Entity) error
	DrainFunc    func(ctx context.Context) (iter.Seq[items.Entity], error)
	FinalizeFunc func(ctx context.Context) error
}

func (h HandlerFuncs) Submit(ctx context.Context, entity items.Entity) error {
	if h.SubmitFunc == nil {
		return nil
	}
	return h.SubmitFunc(ctx, entity)
}

func (h HandlerFuncs) Drain(ctx context.Context) (iter.Seq[items.Entity], error) {
	if h.DrainFunc == nil {
		return empty, nil
	}
	return h.DrainFunc(ctx)
}

func (h HandlerFuncs) Finalize(ctx context.Context) error {
	if h.FinalizeFunc == nil {
		return nil
	}
	return h.FinalizeFunc(ctx)
}

// Dispatcher routes entities to the handler registered for their kind.
// The handler set is fixed at construction, so a Dispatcher may be shared
// between goroutines. A nil *Dispatcher drops everything.
type Dispatcher struct {
	handlers map[items.Kind]Handler
	logger   zerolog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger used for handler failures
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a dispatcher over a copy of handlers. Missing kinds are not an error.
func New(handlers map[items.Kind]Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[items.Kind]Handler, len(handlers)),
		logger:   log.Logger,
	}
	for kind, handler := range handlers {
		if handler != nil {
			d.handlers[kind] = handler
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handles reports whether a handler is registered for kind
func (d *Dispatcher) Handles(kind items.Kind) bool {
	_, ok := d.handler(kind)
	return ok
}

// Kinds returns the registered kinds in a stable order
func (d *Dispatcher) Kinds() []items.Kind {
	if d == nil {
		return nil
	}
	kinds := make([]items.Kind, 0, len(d.handlers))
	for kind := range d.handlers {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Submit forwards entity to its handler. Entities without a handler are
// dropped; handler errors and panics are logged and never returned.
func (d *Dispatcher) Submit(ctx context.Context, entity items.Entity) {
	if entity == nil {
		return
	}
	kind := entity.Kind()
	handler, ok := d.handler(kind)
	if !ok {
		itemsTotal.WithLabelValues(string(kind), opSubmit, outcomeDropped).Inc()
		return
	}

	err := d.guard(kind, opSubmit, func() error {
		return handler.Submit(ctx, entity)
	})
	if err != nil {
		itemsTotal.WithLabelValues(string(kind), opSubmit, outcomeFailed).Inc()
		return
	}
	itemsTotal.WithLabelValues(string(kind), opSubmit, outcomeHandled).Inc()
}

// Drain returns the handler's pending entities of kind. A missing handler,
// a failing Drain call or a panic while iterating yields an empty or
// truncated sequence instead of an error.
func (d *Dispatcher) Drain(ctx context.Context, kind items.Kind) iter.Seq[items.Entity] {
	handler, ok := d.handler(kind)
	if !ok {
		return empty
	}

	var seq iter.Seq[items.Entity]
	err := d.guard(kind, opDrain, func() error {
		var err error
		seq, err = handler.Drain(ctx)
		return err
	})
	if err != nil || seq == nil {
		return empty
	}

	return func(yield func(items.Entity) bool) {
		inBody := false
		defer func() {
			// panics raised by the consumer's loop body are not ours to swallow
			if inBody {
				return
			}
			if r := recover(); r != nil {
				d.fail(kind, opDrain, fmt.Errorf("panic while iterating: %v", r))
			}
		}()

		for entity := range seq {
			if entity == nil {
				continue
			}
			itemsTotal.WithLabelValues(string(kind), opDrain, outcomeHandled).Inc()
			inBody = true
			if !yield(entity) {
				return
			}
			inBody = false
		}
	}
}

// Finalize tells the handler for kind that the drained entities were delivered
func (d *Dispatcher) Finalize(ctx context.Context, kind items.Kind) {
	handler, ok := d.handler(kind)
	if !ok {
		return
	}
	_ = d.guard(kind, opFinalize, func() error {
		return handler.Finalize(ctx)
	})
}

func (d *Dispatcher) handler(kind items.Kind) (Handler, bool) {
	if d == nil {
		return nil, false
	}
	handler, ok := d.handlers[kind]
	return handler, ok
}

// guard runs fn, converting a panic into an error. Failures are logged.
func (d *Dispatcher) guard(kind items.Kind, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			d.fail(kind, op, err)
		}
	}()
	return fn()
}

func (d *Dispatcher) fail(kind items.Kind, op string, err error) {
	handlerFailures.WithLabelValues(string(kind), op).Inc()
	d.logger.Error().
		Err(err).
		Str("kind", string(kind)).
		Str("operation", op).
		Msg("Pipeline handler failed")
}

func empty(func(items.Entity) bool) {}
