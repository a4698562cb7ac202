// Package events defines the typed event bus that decouples the
// transfer protocol core from whatever renders it (spec.md §2 "Event
// Bus", §9 "Dual-channel UI bus"). The core only ever writes Events and
// reads prompt replies; it never touches a terminal or a widget toolkit
// directly.
package events

// Kind discriminates the Event variants named in spec.md §6.
type Kind int

const (
	KindStatus Kind = iota
	KindProgress
	KindPrompt
	KindFileEnd
	KindError
	KindFatal
	KindTime
	KindDone
)

// Event is the single sum type flowing from core to UI. Only the field
// relevant to Kind is populated; the rest are zero.
type Event struct {
	Kind    Kind
	Text    string // Status, Progress, Prompt, Error, Fatal payload
	Seconds uint64 // Time: seconds remaining before the session deadline
}

func Status(text string) Event   { return Event{Kind: KindStatus, Text: text} }
func Progress(text string) Event { return Event{Kind: KindProgress, Text: text} }
func Prompt(text string) Event   { return Event{Kind: KindPrompt, Text: text} }
func FileEnd() Event             { return Event{Kind: KindFileEnd} }
func Error(text string) Event    { return Event{Kind: KindError, Text: text} }
func Fatal(text string) Event    { return Event{Kind: KindFatal, Text: text} }
func Time(seconds uint64) Event  { return Event{Kind: KindTime, Seconds: seconds} }
func Done() Event                { return Event{Kind: KindDone} }

// busBuffer is the channel depth for both directions of Bus. Events are
// produced faster than a human renders Prompt replies, but slower than
// would ever need unbounded buffering; a modest buffer keeps a slow UI
// from stalling the driver loop on ordinary Status/Progress traffic
// while still applying backpressure if the UI falls far behind.
const busBuffer = 64

// Bus is the core's handle to the UI: an outbound Event stream and an
// inbound reply stream used only while a Prompt is outstanding. A
// Prompt is strictly half-duplex per spec.md §9: the core must not
// emit further events until exactly one reply arrives.
type Bus struct {
	events  chan Event
	replies chan string
	closed  chan struct{}
}

// NewBus creates a Bus with process-wide lifetime semantics: it is
// created once per session and closed on Done/Fatal (spec.md §3
// "Ownership & lifecycle").
func NewBus() *Bus {
	return &Bus{
		events:  make(chan Event, busBuffer),
		replies: make(chan string),
		closed:  make(chan struct{}),
	}
}

// Send delivers an event to the UI, or returns false if the bus was
// already closed.
func (b *Bus) Send(e Event) bool {
	select {
	case b.events <- e:
		return true
	case <-b.closed:
		return false
	}
}

// Events returns the channel a UI consumer ranges over.
func (b *Bus) Events() <-chan Event { return b.events }

// Prompt sends a Prompt event and blocks for exactly one reply, or
// until cancel fires. Nothing else may be sent on this Bus while a
// Prompt call is outstanding — that discipline is the caller's (the
// acceptance policy never overlaps two Prompts).
func (b *Bus) Prompt(text string, cancel <-chan struct{}) (string, bool) {
	if !b.Send(Prompt(text)) {
		return "", false
	}
	select {
	case reply := <-b.replies:
		return reply, true
	case <-cancel:
		return "", false
	case <-b.closed:
		return "", false
	}
}

// Reply delivers the user's answer to an outstanding Prompt. It is the
// UI's responsibility to call this exactly once per Prompt event it
// receives.
func (b *Bus) Reply(s string) {
	select {
	case b.replies <- s:
	case <-b.closed:
	}
}

// Close releases the bus. Safe to call more than once.
func (b *Bus) Close() {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
}
