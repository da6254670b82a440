package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/songzhibin97/adminconsole/internal/normalize"
	"github.com/songzhibin97/adminconsole/pkg/console"
)

// ResourceEndpoint describes where a resource lives on the backend
type ResourceEndpoint struct {
	// Path serves list, get, update and delete.
	Path string
	// CreatePath overrides Path for create.
	CreatePath string
	// Paginated resources receive page and limit query parameters.
	Paginated bool
}

// Resource performs the CRUD calls of one resource kind
type Resource[T any] struct {
	client   *Client
	kind     normalize.Kind
	endpoint ResourceEndpoint
}

// NewResource creates a Resource of kind at endpoint
func NewResource[T any](c *Client, kind normalize.Kind, endpoint ResourceEndpoint) *Resource[T] {
	return &Resource[T]{client: c, kind: kind, endpoint: endpoint}
}

// Kind returns the resource kind.
func (r *Resource[T]) Kind() normalize.Kind {
	return r.kind
}

// List fetches one page and normalizes it.
func (r *Resource[T]) List(ctx context.Context, page, limit int) (console.ListResult[T], error) {
	req := Request{
		Name:   r.kind.Name + ".list",
		Method: http.MethodGet,
		Path:   r.endpoint.Path,
	}
	if r.endpoint.Paginated {
		req.Query = url.Values{
			"page":  []string{strconv.Itoa(page)},
			"limit": []string{strconv.Itoa(limit)},
		}
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return console.ListResult[T]{}, err
	}
	return normalize.List[T](r.kind, resp.Body, normalize.Request{Page: page, Limit: limit})
}

// Get fetches a single entity.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, missingID(r.kind)
	}

	resp, err := r.client.Do(ctx, Request{
		Name:   r.kind.Name + ".get",
		Method: http.MethodGet,
		Path:   r.entityPath(id),
	})
	if err != nil {
		return zero, err
	}
	return normalize.Entity[T](r.kind, resp.Body)
}

// Create submits a new entity. The response body is not interpreted, callers
// re-fetch the list.
func (r *Resource[T]) Create(ctx context.Context, payload T) error {
	path := r.endpoint.CreatePath
	if path == "" {
		path = r.endpoint.Path
	}
	_, err := r.client.Do(ctx, Request{
		Name:   r.kind.Name + ".create",
		Method: http.MethodPost,
		Path:   path,
		Body:   submission(payload),
	})
	return err
}

// Update replaces the entity identified by id.
func (r *Resource[T]) Update(ctx context.Context, id string, payload T) error {
	if id == "" {
		return missingID(r.kind)
	}
	_, err := r.client.Do(ctx, Request{
		Name:   r.kind.Name + ".update",
		Method: http.MethodPut,
		Path:   r.entityPath(id),
		Body:   submission(payload),
	})
	return err
}

// Delete removes the entity identified by id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return missingID(r.kind)
	}
	_, err := r.client.Do(ctx, Request{
		Name:   r.kind.Name + ".delete",
		Method: http.MethodDelete,
		Path:   r.entityPath(id),
	})
	return err
}

func (r *Resource[T]) entityPath(id string) string {
	return joinURL(r.endpoint.Path, url.PathEscape(id))
}

// submission returns the request body for payload.
func submission(payload any) any {
	if s, ok := payload.(console.Submitter); ok {
		return s.Submission()
	}
	return payload
}

func missingID(kind normalize.Kind) error {
	return console.NewValidationError("MISSING_ID", kind.Name+": an identifier is required")
}
