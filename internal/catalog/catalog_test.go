package catalog_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sqlsage/sqlsage/internal/catalog"
	"github.com/sqlsage/sqlsage/internal/store"
	"github.com/sqlsage/sqlsage/pkg/models"
)

// countingAdapter wraps Memory and counts catalog fetches.
type countingAdapter struct {
	*store.Memory
	mu      sync.Mutex
	fetches int
}

func (c *countingAdapter) FetchCatalog(ctx context.Context) (*models.CatalogSnapshot, error) {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()
	return c.Memory.FetchCatalog(ctx)
}

func newAdapter(t *testing.T) *countingAdapter {
	t.Helper()
	m := store.NewMemory("catalog-test")
	m.AddTable("users", []models.ColumnInfo{{Name: "id", Type: "integer"}}, nil)
	return &countingAdapter{Memory: m}
}

func TestSnapshotCachedWithinTTL(t *testing.T) {
	a := newAdapter(t)
	c := catalog.NewCache(time.Minute)
	ctx := context.Background()

	if _, err := c.Snapshot(ctx, a); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if _, err := c.Snapshot(ctx, a); err != nil {
		t.Fatalf("Snapshot() second call error = %v", err)
	}
	if a.fetches != 1 {
		t.Errorf("adapter fetches = %d, want 1 (second call served from cache)", a.fetches)
	}
}

func TestSnapshotRefetchAfterInvalidate(t *testing.T) {
	a := newAdapter(t)
	c := catalog.NewCache(time.Minute)
	ctx := context.Background()

	if _, err := c.Snapshot(ctx, a); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	c.Invalidate(a.Identity())
	if _, err := c.Snapshot(ctx, a); err != nil {
		t.Fatalf("Snapshot() after invalidate error = %v", err)
	}
	if a.fetches != 2 {
		t.Errorf("adapter fetches = %d, want 2", a.fetches)
	}
}

func TestSnapshotNilAdapter(t *testing.T) {
	c := catalog.NewCache(0)

	_, err := c.Snapshot(context.Background(), nil)
	if err != store.ErrNotConfigured {
		t.Fatalf("Snapshot(nil) error = %v, want ErrNotConfigured", err)
	}
}

func TestSnapshotConcurrentAccess(t *testing.T) {
	a := newAdapter(t)
	c := catalog.NewCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Snapshot(context.Background(), a); err != nil {
				t.Errorf("Snapshot() error = %v", err)
			}
		}()
	}
	wg.Wait()
}
