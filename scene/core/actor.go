// ABOUTME: Goroutine-based actor that serializes scene commands and broadcasts events.
// ABOUTME: Provides SceneActorHandle for sending commands, subscribing to events, and reading state.
package core

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// EventBroadcaster provides a fan-out mechanism for events to multiple subscribers.
// Plain subscribers get a buffered channel and drop events when it is full.
// Queued subscribers get every event in order, however far behind they fall.
type EventBroadcaster struct {
	mu          sync.RWMutex
	subscribers []chan Event
	queues      []*eventQueue
}

// NewEventBroadcaster creates a broadcaster with no initial subscribers.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{}
}

// Subscribe creates a new buffered channel for receiving broadcast events.
func (b *EventBroadcaster) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 1024)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// SubscribeQueued returns a channel fed from an unbounded queue. Broadcast
// never blocks on it and never drops from it. Persisters use this path.
func (b *EventBroadcaster) SubscribeQueued() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := newEventQueue()
	b.queues = append(b.queues, q)
	return q.out
}

// Unsubscribe removes a channel from the subscriber list and closes it.
// A queued channel is closed once its pending events have been delivered.
func (b *EventBroadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
	for i, q := range b.queues {
		if q.out == ch {
			b.queues = append(b.queues[:i], b.queues[i+1:]...)
			q.close()
			return
		}
	}
}

// Broadcast sends an event to all subscribers. Plain subscribers whose
// buffer is full miss the event; queued subscribers always get it.
func (b *EventBroadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	for _, q := range b.queues {
		q.push(event)
	}
}

// eventQueue is an unbounded FIFO drained into out by its own goroutine.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []Event
	closed bool
	out    chan Event
}

func newEventQueue() *eventQueue {
	q := &eventQueue{out: make(chan Event, 64)}
	q.cond = sync.NewCond(&q.mu)
	go q.pump()
	return q
}

func (q *eventQueue) push(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.events = append(q.events, event)
	q.cond.Signal()
}

func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Signal()
}

func (q *eventQueue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		for len(q.events) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.events) == 0 {
			q.mu.Unlock()
			return
		}
		event := q.events[0]
		q.events[0] = Event{}
		q.events = q.events[1:]
		q.mu.Unlock()

		q.out <- event
	}
}

// commandMessage pairs a Command with a reply channel for the result.
type commandMessage struct {
	cmd   Command
	reply chan commandResult
}

type commandResult struct {
	events []Event
	err    error
}

// SceneActorHandle is the public interface for interacting with a scene actor.
// It is safe for concurrent use.
type SceneActorHandle struct {
	cmdCh       chan commandMessage
	broadcaster *EventBroadcaster
	state       *SceneState
	mu          sync.RWMutex // protects state
	SceneID     ulid.ULID
}

// SendCommand sends a command to the actor and waits for the result.
func (h *SceneActorHandle) SendCommand(cmd Command) ([]Event, error) {
	reply := make(chan commandResult, 1)
	msg := commandMessage{cmd: cmd, reply: reply}

	select {
	case h.cmdCh <- msg:
	default:
		return nil, ErrActorBusy
	}

	result := <-reply
	return result.events, result.err
}

// Subscribe returns a channel that receives broadcast events.
func (h *SceneActorHandle) Subscribe() chan Event {
	return h.broadcaster.Subscribe()
}

// SubscribeQueued returns a channel that receives every broadcast event,
// in order, without drops. The reader must keep draining it.
func (h *SceneActorHandle) SubscribeQueued() chan Event {
	return h.broadcaster.SubscribeQueued()
}

// Unsubscribe removes a channel from the broadcast subscriber list and closes it.
func (h *SceneActorHandle) Unsubscribe(ch chan Event) {
	h.broadcaster.Unsubscribe(ch)
}

// ReadState calls fn with a read lock on the current state.
// fn must not modify the state or keep references after returning.
func (h *SceneActorHandle) ReadState(fn func(s *SceneState)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn(h.state)
}

// SpawnActor starts a scene actor goroutine and returns its handle.
func SpawnActor(sceneID ulid.ULID, initialState *SceneState) *SceneActorHandle {
	cmdCh := make(chan commandMessage, 64)

	handle := &SceneActorHandle{
		cmdCh:       cmdCh,
		broadcaster: NewEventBroadcaster(),
		state:       initialState,
		SceneID:     sceneID,
	}

	actor := &sceneActor{
		handle:      handle,
		nextEventID: initialState.LastEventID + 1,
	}
	go actor.run()

	return handle
}

// sceneActor is the internal goroutine that processes commands sequentially.
type sceneActor struct {
	handle      *SceneActorHandle
	nextEventID uint64
}

func (a *sceneActor) run() {
	for msg := range a.handle.cmdCh {
		msg.reply <- a.processCommand(msg.cmd)
	}
}

func (a *sceneActor) processCommand(cmd Command) commandResult {
	a.handle.mu.RLock()
	payloads, err := a.handle.state.Decide(cmd)
	a.handle.mu.RUnlock()
	if err != nil {
		return commandResult{err: err}
	}

	events := newEvents(a.handle.SceneID, a.nextEventID, payloads)
	a.nextEventID += uint64(len(events))

	a.handle.mu.Lock()
	for i := range events {
		a.handle.state.Apply(&events[i])
	}
	a.handle.mu.Unlock()

	for _, event := range events {
		a.handle.broadcaster.Broadcast(event)
	}

	return commandResult{events: events}
}
