package shop

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing or empty store.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	repo := NewFileRepository(filepath.Join(dir, "missing.json"))
	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"shopId": ""}`), 0o600))

	_, err = NewFileRepository(empty).Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns the same shop.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "shop.json")
	repo := NewFileRepository(file)

	want := &domain.ShopConfig{
		ShopID:   "7f3a9c20-shop",
		ShopName: "Shop 7f3a9c20...",
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = os.Stat(file)
	require.NoError(t, err)
}

// TestFileRepository_SaveKeepsOtherKeys verifies unrelated keys written by the UI survive a Save.
func TestFileRepository_SaveKeepsOtherKeys(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "shop.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"theme": "dark", "shopId": "old"}`), 0o600))

	repo := NewFileRepository(file)
	require.NoError(t, repo.Save(context.Background(), &domain.ShopConfig{ShopID: "new"}))

	contents, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(contents), "dark")

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new", got.ShopID)
}

// TestFileRepository_SaveRequiresShopID rejects an empty selection.
func TestFileRepository_SaveRequiresShopID(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "shop.json"))
	require.Error(t, repo.Save(context.Background(), nil))
	require.Error(t, repo.Save(context.Background(), &domain.ShopConfig{ShopID: "  "}))
}

// TestFileRepository_isStoreEvent filters watcher events by path and operation.
func TestFileRepository_isStoreEvent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := NewFileRepository(filepath.Join(dir, "shop.json"))

	require.True(t, repo.isStoreEvent(fsnotify.Event{Name: repo.Path(), Op: fsnotify.Write}))
	require.True(t, repo.isStoreEvent(fsnotify.Event{Name: repo.Path(), Op: fsnotify.Create}))
	require.False(t, repo.isStoreEvent(fsnotify.Event{Name: repo.Path(), Op: fsnotify.Chmod}))
	require.False(t, repo.isStoreEvent(fsnotify.Event{Name: filepath.Join(dir, "other.json"), Op: fsnotify.Write}))
}

// TestFileRepository_Watch triggers the callback when the UI saves a shop.
func TestFileRepository_Watch(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "shop.json"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)

	go func() {
		done <- repo.Watch(ctx, func(context.Context) {
			changed <- struct{}{}
		})
	}()

	// Saving before the watcher is registered would miss the event, so retry.
	require.Eventually(t, func() bool {
		if err := repo.Save(context.Background(), &domain.ShopConfig{ShopID: "shop-1"}); err != nil {
			return false
		}

		select {
		case <-changed:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
