// Package resource implements the list page controllers of the console.
// Every successful mutation is followed by a re-fetch of the current page,
// and a failed mutation leaves the held list untouched.
package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/songzhibin97/adminconsole/internal/gateway"
	"github.com/songzhibin97/adminconsole/pkg/console"
	"github.com/songzhibin97/adminconsole/pkg/log"
	"github.com/songzhibin97/adminconsole/pkg/metrics"
)

// Action names a user action on a list page.
type Action string

const (
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Source performs the backend calls of one resource kind.
type Source[T any] interface {
	List(ctx context.Context, page, limit int) (console.ListResult[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, payload T) error
	Update(ctx context.Context, id string, payload T) error
	Delete(ctx context.Context, id string) error
}

// Options configures a Controller
type Options struct {
	// Name labels logs and metrics, e.g. "missions".
	Name     string
	PageSize int
	Logger   log.Logger
	Metrics  metrics.Recorder
}

// Controller holds the list shown on one page and serializes the actions
// that change it.
type Controller[T console.Entity] struct {
	source   Source[T]
	name     string
	pageSize int
	logger   log.Logger
	metrics  metrics.Recorder

	mu       sync.Mutex
	current  console.ListResult[T]
	page     int
	limit    int
	seq      uint64
	inflight map[Action]bool
	closed   bool
}

// NewController creates a Controller over source
func NewController[T console.Entity](source Source[T], opts Options) *Controller[T] {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.Nop()
	}

	return &Controller[T]{
		source:   source,
		name:     opts.Name,
		pageSize: pageSize,
		logger:   logger.With(log.Component("resource"), log.String(log.FieldResource, opts.Name)),
		metrics:  recorder,
		current:  console.ListResult[T]{Items: []T{}},
		page:     1,
		limit:    pageSize,
		inflight: make(map[Action]bool),
	}
}

// Current returns the held list.
func (c *Controller[T]) Current() console.ListResult[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close detaches the controller from its page. Results arriving afterwards
// are discarded.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// List loads page and makes it current. When several loads overlap only the
// latest one is applied. A page or limit below 1 selects the defaults.
func (c *Controller[T]) List(ctx context.Context, page, limit int) (console.ListResult[T], error) {
	page, limit = c.normalizePage(page, limit)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return console.ListResult[T]{}, console.ErrViewClosed
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	result, err := c.Fetch(ctx, page, limit)
	if err != nil {
		return console.ListResult[T]{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return console.ListResult[T]{}, console.ErrViewClosed
	}
	if seq != c.seq {
		return c.current, nil
	}
	c.apply(result, page, limit)
	return result, nil
}

// Refresh re-fetches the current page.
func (c *Controller[T]) Refresh(ctx context.Context) (console.ListResult[T], error) {
	c.mu.Lock()
	page, limit := c.page, c.limit
	c.mu.Unlock()
	return c.List(ctx, page, limit)
}

// Fetch loads page without touching the held list.
func (c *Controller[T]) Fetch(ctx context.Context, page, limit int) (console.ListResult[T], error) {
	page, limit = c.normalizePage(page, limit)

	result, err := c.source.List(ctx, page, limit)
	if err != nil {
		c.logger.Warn("list failed", log.Int(log.FieldPage, page), log.Error(err))
		return console.ListResult[T]{}, gateway.Classify(err)
	}

	c.logger.Debug("list loaded",
		log.Int(log.FieldPage, result.Pagination.Page),
		log.Int(log.FieldLimit, result.Pagination.Limit),
		log.Int(log.FieldTotal, result.Pagination.Total),
	)
	return result, nil
}

// Apply makes a result obtained through Fetch current. It is how joined
// views commit once every fetch has succeeded.
func (c *Controller[T]) Apply(result console.ListResult[T], page, limit int) error {
	page, limit = c.normalizePage(page, limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return console.ErrViewClosed
	}
	c.seq++
	c.apply(result, page, limit)
	return nil
}

// Get loads a single entity, typically to prefill an edit form.
func (c *Controller[T]) Get(ctx context.Context, id string) (T, error) {
	entity, err := c.source.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, gateway.Classify(err)
	}
	return entity, nil
}

// Create validates payload, submits it and re-fetches the current page.
func (c *Controller[T]) Create(ctx context.Context, payload T) (console.ListResult[T], error) {
	if err := payload.Validate(console.OperationCreate); err != nil {
		return c.Current(), err
	}
	return c.mutate(ctx, ActionCreate, "", func(ctx context.Context) error {
		return c.source.Create(ctx, payload)
	})
}

// Update validates payload, submits it and re-fetches the current page.
func (c *Controller[T]) Update(ctx context.Context, id string, payload T) (console.ListResult[T], error) {
	if id == "" {
		return c.Current(), console.NewValidationError("MISSING_ID", fmt.Sprintf("%s: an identifier is required", c.name))
	}
	if err := payload.Validate(console.OperationUpdate); err != nil {
		return c.Current(), err
	}
	return c.mutate(ctx, ActionUpdate, id, func(ctx context.Context) error {
		return c.source.Update(ctx, id, payload)
	})
}

// Delete removes the entity and re-fetches the current page. When the
// current page no longer exists afterwards the last remaining page is shown.
func (c *Controller[T]) Delete(ctx context.Context, id string) (console.ListResult[T], error) {
	if id == "" {
		return c.Current(), console.NewValidationError("MISSING_ID", fmt.Sprintf("%s: an identifier is required", c.name))
	}
	return c.mutate(ctx, ActionDelete, id, func(ctx context.Context) error {
		return c.source.Delete(ctx, id)
	})
}

// mutate runs call under the action's in-flight flag and refreshes on success.
func (c *Controller[T]) mutate(ctx context.Context, action Action, id string, call func(context.Context) error) (console.ListResult[T], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return console.ListResult[T]{}, console.ErrViewClosed
	}
	if c.inflight[action] {
		current := c.current
		c.mu.Unlock()
		return current, fmt.Errorf("%s %s: %w", c.name, action, console.ErrActionInFlight)
	}
	c.inflight[action] = true
	page, limit := c.page, c.limit
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, action)
		c.mu.Unlock()
	}()

	logger := c.logger.With(log.String(log.FieldAction, string(action)))
	if id != "" {
		logger = logger.With(log.String(log.FieldEntityID, id))
	}

	err := call(ctx)
	c.metrics.ObserveMutation(c.name, string(action), metrics.Result(err))
	if err != nil {
		classified := gateway.Classify(err)
		logger.Warn("mutation failed", log.Error(err))
		return c.Current(), classified
	}
	logger.Info("mutation succeeded")

	result, err := c.Fetch(ctx, page, limit)
	if err == nil && action == ActionDelete && len(result.Items) == 0 && page > 1 && page > result.Pagination.TotalPages {
		page = result.Pagination.TotalPages
		if page < 1 {
			page = 1
		}
		result, err = c.Fetch(ctx, page, limit)
	}
	if err != nil {
		return c.Current(), fmt.Errorf("%s %s succeeded but refresh failed: %w", c.name, action, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return console.ListResult[T]{}, console.ErrViewClosed
	}
	c.seq++
	c.apply(result, page, limit)
	return result, nil
}

func (c *Controller[T]) apply(result console.ListResult[T], page, limit int) {
	if result.Items == nil {
		result.Items = []T{}
	}
	c.current = result
	c.page = page
	c.limit = limit
}

func (c *Controller[T]) normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = c.pageSize
	}
	return page, limit
}
