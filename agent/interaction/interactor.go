package interaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/uipilot/agent/memory"
	"github.com/BaSui01/uipilot/internal/telemetry"
)

// ErrNoWorkingSelector is returned when every candidate selector failed.
var ErrNoWorkingSelector = errors.New("no working selector")

// DefaultWaitTimeout bounds the visibility wait for each candidate.
const DefaultWaitTimeout = 5 * time.Second

// Driver is the browser side of an interaction. *browser.Session satisfies it.
type Driver interface {
	WaitFor(ctx context.Context, selector string, timeout time.Duration) bool
	AttemptClick(ctx context.Context, selector string, timeout time.Duration) bool
	Fill(ctx context.Context, selector, text string) error
}

// Recorder receives one observation per interaction. *metrics.Collector satisfies it.
type Recorder interface {
	RecordInteraction(agent, page, action string, success bool, attempts int, duration time.Duration)
}

// Option configures an Interactor.
type Option func(*Interactor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Interactor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithRecorder reports interactions to r.
func WithRecorder(r Recorder) Option {
	return func(i *Interactor) { i.metrics = r }
}

// WithWaitTimeout overrides DefaultWaitTimeout.
func WithWaitTimeout(d time.Duration) Option {
	return func(i *Interactor) {
		if d > 0 {
			i.waitTimeout = d
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(i *Interactor) {
		if t != nil {
			i.tracer = t
		}
	}
}

// Interactor clicks and fills logical elements, trying the remembered selector
// before the defaults and teaching the memory which one worked.
type Interactor struct {
	resolver    *memory.Resolver
	driver      Driver
	metrics     Recorder
	tracer      trace.Tracer
	logger      *zap.Logger
	waitTimeout time.Duration
}

// New creates an Interactor.
func New(resolver *memory.Resolver, driver Driver, opts ...Option) *Interactor {
	i := &Interactor{
		resolver:    resolver,
		driver:      driver,
		tracer:      telemetry.Tracer(),
		logger:      zap.NewNop(),
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With(zap.String("component", "interactor"))
	return i
}

// WithDefaults returns an Interactor that also knows extra fallback selectors,
// e.g. ones built from a runtime value such as a database name.
func (i *Interactor) WithDefaults(extra memory.DefaultTable) *Interactor {
	c := *i
	c.resolver = i.resolver.Extend(extra)
	return &c
}

// Click clicks (page, element) and returns the selector that worked.
func (i *Interactor) Click(ctx context.Context, page, element string) (string, error) {
	return i.interact(ctx, "click", page, element, func(ctx context.Context, sel string) bool {
		return i.driver.AttemptClick(ctx, sel, i.waitTimeout)
	})
}

// Fill replaces the value of (page, element) and returns the selector that worked.
func (i *Interactor) Fill(ctx context.Context, page, element, text string) (string, error) {
	return i.interact(ctx, "fill", page, element, func(ctx context.Context, sel string) bool {
		if err := i.driver.Fill(ctx, sel, text); err != nil {
			i.logger.Debug("fill failed", zap.String("selector", sel), zap.Error(err))
			return false
		}
		return true
	})
}

// Visible reports whether (page, element) shows up under any candidate.
// Nothing is written to the memory, so probing for optional elements
// such as a login form does not penalize their selectors.
func (i *Interactor) Visible(ctx context.Context, page, element string, timeout time.Duration) (string, bool, error) {
	candidates, err := i.resolver.Candidates(ctx, page, element)
	if err != nil {
		return "", false, err
	}
	if timeout <= 0 {
		timeout = i.waitTimeout
	}
	for _, sel := range candidates {
		if i.driver.WaitFor(ctx, sel, timeout) {
			return sel, true, nil
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
	}
	return "", false, nil
}

func (i *Interactor) interact(ctx context.Context, action, page, element string, attempt func(context.Context, string) bool) (string, error) {
	store := i.resolver.Store()
	agent := store.AgentName()

	ctx, span := i.tracer.Start(ctx, "interaction."+action, trace.WithAttributes(
		attribute.String("uipilot.agent", agent),
		attribute.String("uipilot.page", page),
		attribute.String("uipilot.element", element),
	))
	defer span.End()

	start := time.Now()
	attempts := 0
	finish := func(sel string, err error) (string, error) {
		ok := err == nil
		if i.metrics != nil {
			i.metrics.RecordInteraction(agent, page, action, ok, attempts, time.Since(start))
		}
		span.SetAttributes(attribute.Int("uipilot.attempts", attempts))
		if ok {
			span.SetAttributes(attribute.String("uipilot.selector", sel))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return sel, err
	}

	candidates, err := i.resolver.Candidates(ctx, page, element)
	if err != nil {
		return finish("", fmt.Errorf("resolve %s/%s: %w", page, element, err))
	}

	for _, sel := range candidates {
		if err := ctx.Err(); err != nil {
			return finish("", err)
		}
		attempts++

		var ok bool
		if i.driver.WaitFor(ctx, sel, i.waitTimeout) {
			ok = attempt(ctx, sel)
		}
		if err := i.resolver.Report(ctx, page, element, sel, ok); err != nil {
			return finish("", fmt.Errorf("record %s/%s: %w", page, element, err))
		}

		i.logger.Debug("selector attempt",
			zap.String("page", page),
			zap.String("element", element),
			zap.String("selector", sel),
			zap.Bool("success", ok))

		if ok {
			return finish(sel, nil)
		}
	}

	i.logger.Warn("no working selector",
		zap.String("page", page),
		zap.String("element", element),
		zap.Int("candidates", len(candidates)))
	return finish("", fmt.Errorf("%s %s/%s: %w", action, page, element, ErrNoWorkingSelector))
}
