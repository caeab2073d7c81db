package ke

// EventType selects auto-reset-after-one-waiter vs. stays-signaled
// semantics, mirroring EVENT_SYNCHRONIZATION / EVENT_NOTIFICATION.
type EventType int

const (
	EventSynchronization EventType = iota
	EventNotification
)

/// Event is the dispatcher event object: KeSetEvent signals it,
/// KeResetEvent clears it, KePulseEvent signals it just long enough to
/// release whatever is currently waiting. A synchronization event
/// auto-resets after releasing exactly one waiter; a notification event
/// stays signaled until explicitly reset.
// Grounded on boron/include/ke/event.h and the KeSatisfyWaitBlock /
// KeSignalObject pair in dispatch.c, which this tree's Header.Signal
// already implements for the notification case; the synchronization
// case adds the auto-reset-after-one-waiter behavior on top.
type Event struct {
	Header
	kind EventType
}

/// InitEvent initializes an event of the given type in the given
/// initial state, mirroring KeInitializeEvent.
func (e *Event) InitEvent(kind EventType, initialState bool) {
	e.Header.Init()
	e.kind = kind
	if initialState {
		e.Header.signaled = true
	}
}

/// NewEvent allocates and initializes an event.
func NewEvent(kind EventType, initialState bool) *Event {
	e := &Event{}
	e.InitEvent(kind, initialState)
	return e
}

/// ReadState reports the event's signaled state without side effects,
/// mirroring KeReadStateEvent.
func (e *Event) ReadState() bool {
	return e.Header.IsSignaled()
}

/// Set signals the event. A synchronization event releases exactly one
/// waiter then auto-resets; a notification event stays signaled and
/// releases every current and future waiter until Reset.
func (e *Event) Set() {
	if e.kind == EventNotification {
		e.Header.Signal()
		return
	}

	e.Header.mu.Lock()
	if len(e.Header.waiters) == 0 {
		e.Header.signaled = true
		e.Header.mu.Unlock()
		return
	}
	wb := e.Header.waiters[0]
	e.Header.waiters = e.Header.waiters[1:]
	e.Header.signaled = false
	e.Header.mu.Unlock()
	wb.thread.satisfy(wb)
}

/// Reset clears the event's signaled state without waking anyone.
func (e *Event) Reset() {
	e.Header.Reset()
}

/// Pulse signals the event, releases every thread currently waiting,
/// then immediately drops back to unsignaled — a thread that starts
/// waiting after the pulse sees no state change at all.
func (e *Event) Pulse() {
	e.Header.mu.Lock()
	waiters := make([]*WaitBlock, len(e.Header.waiters))
	copy(waiters, e.Header.waiters)
	e.Header.waiters = nil
	e.Header.mu.Unlock()
	for _, wb := range waiters {
		wb.thread.satisfy(wb)
	}
}
