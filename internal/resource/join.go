package resource

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Loader is one fetch of a joined view.
type Loader func(ctx context.Context) error

// Join runs loaders concurrently. The first failure cancels the others and
// is returned, failing the whole view.
func Join(ctx context.Context, loaders ...Loader) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, load := range loaders {
		g.Go(func() error {
			return load(ctx)
		})
	}
	return g.Wait()
}
