package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestJoin_AllSucceed(t *testing.T) {
	var n atomic.Int32
	load := func(context.Context) error {
		n.Add(1)
		return nil
	}
	if err := Join(context.Background(), load, load, load); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if n.Load() != 3 {
		t.Errorf("ran %d loaders, want 3", n.Load())
	}
}

func TestJoin_FailureFailsView(t *testing.T) {
	boom := errors.New("career fields unavailable")
	canceled := make(chan struct{})

	err := Join(context.Background(),
		func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				close(canceled)
				return ctx.Err()
			case <-time.After(2 * time.Second):
				return nil
			}
		},
		func(context.Context) error { return boom },
	)
	if !errors.Is(err, boom) {
		t.Errorf("Join() error = %v, want %v", err, boom)
	}
	select {
	case <-canceled:
	default:
		t.Error("sibling loader was not canceled")
	}
}
