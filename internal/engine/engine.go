package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/node"
	"github.com/roach88/dagclosure/internal/store"
	"github.com/roach88/dagclosure/internal/validate"
)

// PassIDGenerator generates ids that correlate the log lines and spans of
// one rewiring pass.
type PassIDGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default PassIDGenerator. Its ids sort by creation
// time, so passes of one mutation appear in order.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Engine keeps a closure table exact under arc insertion and removal.
//
// Thread-safety model:
//   - Mutations (Connect, Save, SetDirect, Destroy, Disconnect and their
//     soft variants) are serialized by one write lock and run in a single
//     store transaction each.
//   - Reads run in store read transactions without the lock.
type Engine struct {
	store    store.Store
	resolver node.Resolver
	passIDs  PassIDGenerator
	logger   *slog.Logger

	mu sync.Mutex
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithResolver sets the node resolver. Default: node.Homogeneous.
func WithResolver(r node.Resolver) EngineOption {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithPolymorphic selects the polymorphic or homogeneous resolver.
func WithPolymorphic(polymorphic bool) EngineOption {
	return func(e *Engine) {
		e.resolver = node.New(polymorphic)
	}
}

// WithPassIDs sets the pass id generator. Default: UUIDv7Generator.
func WithPassIDs(g PassIDGenerator) EngineOption {
	return func(e *Engine) {
		e.passIDs = g
	}
}

// New creates an Engine over s. The caller owns s and closes it.
func New(s store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    s,
		resolver: node.Homogeneous{},
		passIDs:  UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolver returns the node resolver in use.
func (e *Engine) Resolver() node.Resolver {
	return e.resolver
}

// Store returns the underlying record store.
func (e *Engine) Store() store.Store {
	return e.store
}

func (e *Engine) resolvePair(u, v any) (model.NodeRef, model.NodeRef, error) {
	src, err := e.resolver.From(u)
	if err != nil {
		return model.NodeRef{}, model.NodeRef{}, fmt.Errorf("resolve ancestor: %w", err)
	}
	dst, err := e.resolver.From(v)
	if err != nil {
		return model.NodeRef{}, model.NodeRef{}, fmt.Errorf("resolve descendant: %w", err)
	}
	return src, dst, nil
}

// normalize runs a record's endpoints through the resolver.
func (e *Engine) normalize(l model.Link) (model.Link, error) {
	src, dst, err := e.resolvePair(l.Ancestor, l.Descendant)
	if err != nil {
		return model.Link{}, err
	}
	l.Ancestor, l.Descendant = src, dst
	return l, nil
}

// mutation collects what one client mutation did so metrics are recorded
// once, after commit, even when the store retries the transaction.
type mutation struct {
	passes []passStats
}

func (m *mutation) reset() { m.passes = m.passes[:0] }

// mutate runs fn in one write transaction under the engine lock.
func (e *Engine) mutate(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(tx store.Tx, m *mutation) error) error {
	ctx, span := tracer.Start(ctx, "dag."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	var m mutation
	err := e.store.Update(ctx, func(tx store.Tx) error {
		m.reset()
		return fn(tx, &m)
	})
	mutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		e.recordFailure(ctx, span, op, err)
		return err
	}

	for _, p := range m.passes {
		p.observe()
	}
	span.SetAttributes(attribute.Int("dag.passes", len(m.passes)))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (e *Engine) recordFailure(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var re *validate.RejectedError
	switch {
	case errors.As(err, &re):
		for _, r := range re.Rules() {
			rejections.WithLabelValues(string(r)).Inc()
		}
		e.logger.InfoContext(ctx, "mutation rejected",
			"op", op,
			"link", fmt.Sprintf("%s -> %s", re.Link.Ancestor, re.Link.Descendant),
			"rules", re.Rules(),
		)
	case IsInvariantError(err):
		invariantFailures.Inc()
		e.logger.ErrorContext(ctx, "invariant violated", "op", op, "error", err)
	default:
		e.logger.DebugContext(ctx, "mutation failed", "op", op, "error", err)
	}
}

// view runs fn in a read transaction.
func (e *Engine) view(ctx context.Context, fn func(tx store.Tx) error) error {
	return e.store.View(ctx, fn)
}

func pairAttrs(src, dst model.NodeRef) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("dag.ancestor", src.String()),
		attribute.String("dag.descendant", dst.String()),
	}
}
