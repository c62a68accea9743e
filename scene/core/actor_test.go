// ABOUTME: Tests for SceneActorHandle goroutine-based actor.
// ABOUTME: Covers command processing, broadcasting, event ID continuity, and concurrent senders.
package core_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/2389-research/funcdeck/scene/core"
)

func spawnCreated(t *testing.T) *core.SceneActorHandle {
	t.Helper()
	handle := core.SpawnActor(core.NewULID(), core.NewSceneState())
	if _, err := handle.SendCommand(core.CreateSceneCommand{Title: "Actor", Description: "test"}); err != nil {
		t.Fatalf("create scene: %v", err)
	}
	return handle
}

func TestSpawnActor_SendCommand(t *testing.T) {
	handle := core.SpawnActor(core.NewULID(), core.NewSceneState())

	events, err := handle.SendCommand(core.CreateSceneCommand{Title: "Deck", Description: "functions"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Payload.EventPayloadType() != "SceneCreated" {
		t.Errorf("expected SceneCreated payload, got %s", events[0].Payload.EventPayloadType())
	}
	if events[0].SceneID != handle.SceneID {
		t.Errorf("event scene id %s, want %s", events[0].SceneID, handle.SceneID)
	}

	handle.ReadState(func(s *core.SceneState) {
		if s.Core == nil || s.Core.Title != "Deck" {
			t.Errorf("core = %+v", s.Core)
		}
	})
}

func TestActor_RejectedCommandLeavesState(t *testing.T) {
	handle := spawnCreated(t)

	_, err := handle.SendCommand(core.RemoveFunctionCommand{Name: "ghost"})
	var notFound *core.FunctionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected FunctionNotFoundError, got %v", err)
	}

	handle.ReadState(func(s *core.SceneState) {
		if s.LastEventID != 1 {
			t.Errorf("LastEventID = %d, want 1", s.LastEventID)
		}
	})
}

func TestBroadcast_SubscriberReceivesEventsAfterCommand(t *testing.T) {
	handle := spawnCreated(t)
	ch := handle.Subscribe()
	defer handle.Unsubscribe(ch)

	if _, err := handle.SendCommand(core.AddFunctionCommand{Name: "c", Kind: core.KindConst}); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-ch:
		added, ok := ev.Payload.(core.FunctionAddedPayload)
		if !ok {
			t.Fatalf("expected FunctionAddedPayload, got %T", ev.Payload)
		}
		if added.Function.Name != "c" || added.Index != 0 {
			t.Errorf("added = %+v", added)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestEventIDs_ContinueFromRecoveredState(t *testing.T) {
	state := core.NewSceneState()
	sceneID := core.NewULID()
	if _, err := state.Execute(sceneID, core.CreateSceneCommand{Title: "r"}); err != nil {
		t.Fatal(err)
	}
	if _, err := state.Execute(sceneID, core.AddFunctionCommand{Name: "a", Kind: core.KindConst}); err != nil {
		t.Fatal(err)
	}

	handle := core.SpawnActor(sceneID, state)
	events, err := handle.SendCommand(core.AddFunctionCommand{Name: "b", Kind: core.KindConst})
	if err != nil {
		t.Fatal(err)
	}
	if events[0].EventID != 3 {
		t.Errorf("event id = %d, want 3", events[0].EventID)
	}
}

func TestActor_ConcurrentAddsKeepRefcounts(t *testing.T) {
	handle := spawnCreated(t)
	if _, err := handle.SendCommand(core.AddFunctionCommand{Name: "base", Kind: core.KindConst}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := handle.SendCommand(core.AddFunctionCommand{
				Name:   fmt.Sprintf("sum%d", i),
				Kind:   core.KindSum,
				Params: core.BinaryParams{F1: "base", F2: "base"},
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent add: %v", err)
	}

	handle.ReadState(func(s *core.SceneState) {
		if len(s.Functions) != 21 {
			t.Errorf("functions = %d, want 21", len(s.Functions))
		}
		if got := s.Users("base"); got != 40 {
			t.Errorf("Users(base) = %d, want 40", got)
		}
	})
}

func TestBroadcast_QueuedSubscriberGetsEveryEvent(t *testing.T) {
	handle := spawnCreated(t)
	queued := handle.SubscribeQueued()
	plain := handle.Subscribe()
	defer handle.Unsubscribe(plain)

	const n = 3000
	for i := range n {
		if _, err := handle.SendCommand(core.AddFunctionCommand{Name: fmt.Sprintf("c%d", i), Kind: core.KindConst}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	handle.Unsubscribe(queued)

	want := uint64(2)
	for ev := range queued {
		if ev.EventID != want {
			t.Fatalf("event id = %d, want %d", ev.EventID, want)
		}
		want++
	}
	if got := want - 2; got != n {
		t.Errorf("queued subscriber saw %d events, want %d", got, n)
	}
	if len(plain) != cap(plain) {
		t.Errorf("plain subscriber buffered %d events, want it full at %d", len(plain), cap(plain))
	}
}
