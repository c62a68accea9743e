// ABOUTME: Test suite for the session store's lookup, capacity eviction, and TTL cleanup
// ABOUTME: Uses a real scene actor so sessions are opened the same way handlers open them

package editor

import (
	"testing"
	"time"

	"github.com/2389-research/funcdeck/scene/core"
)

func TestGetUpdatesLastAccess(t *testing.T) {
	scene := newScene(t)
	store := NewStore(10, time.Hour)
	sess, err := store.InvokeAdd(scene, core.KindConst, "c")
	if err != nil {
		t.Fatal(err)
	}

	before := sess.lastAccess()
	time.Sleep(10 * time.Millisecond)
	got, ok := store.Get(sess.ID)
	if !ok || got != sess {
		t.Fatal("expected session to be found")
	}
	if !got.lastAccess().After(before) {
		t.Error("expected LastAccess to be updated")
	}

	if _, ok := store.Get("nonexistent-id"); ok {
		t.Error("unknown id found")
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	scene := newScene(t)
	store := NewStore(2, time.Hour)

	first, _ := store.InvokeAdd(scene, core.KindConst, "a")
	time.Sleep(5 * time.Millisecond)
	second, _ := store.InvokeAdd(scene, core.KindConst, "b")
	time.Sleep(5 * time.Millisecond)
	// Touching the first session makes the second the oldest.
	store.Get(first.ID)
	time.Sleep(5 * time.Millisecond)
	third, _ := store.InvokeAdd(scene, core.KindConst, "c")

	if store.Len() != 2 {
		t.Fatalf("len = %d, want 2", store.Len())
	}
	if _, ok := store.Get(second.ID); ok {
		t.Error("expected the least recently used session to be evicted")
	}
	for _, id := range []string{first.ID, third.ID} {
		if _, ok := store.Get(id); !ok {
			t.Errorf("session %s evicted", id)
		}
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	scene := newScene(t)
	store := NewStore(10, 20*time.Millisecond)
	sess, _ := store.InvokeAdd(scene, core.KindConst, "a")

	store.Cleanup()
	if _, ok := store.Get(sess.ID); !ok {
		t.Fatal("fresh session removed")
	}

	time.Sleep(40 * time.Millisecond)
	store.Cleanup()
	if store.Len() != 0 {
		t.Error("expired session survived cleanup")
	}
}

func TestStartCleanup(t *testing.T) {
	scene := newScene(t)
	store := NewStore(10, 10*time.Millisecond)
	_, _ = store.InvokeAdd(scene, core.KindConst, "a")

	stop := store.StartCleanup(5 * time.Millisecond)
	defer stop()

	deadline := time.Now().Add(time.Second)
	for store.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.Len() != 0 {
		t.Error("background cleanup never removed the expired session")
	}
}
