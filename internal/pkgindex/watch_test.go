package pkgindex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatch_StartAndStopWithoutError(t *testing.T) {
	lib := t.TempDir()
	r := New([]string{lib}, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Watch(ctx))
	r.StopWatch()
}

func TestInvalidate_RemovesMemEntry(t *testing.T) {
	r := New(nil, t.TempDir())
	r.mu.Lock()
	r.mem["dplyr"] = memEntry{negative: true}
	r.mu.Unlock()

	r.invalidate("dplyr")

	r.mu.RLock()
	_, ok := r.mem["dplyr"]
	r.mu.RUnlock()
	require.False(t, ok)
}
