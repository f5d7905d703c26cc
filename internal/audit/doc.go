// Package audit relays session lifecycle events to a caller-supplied sink.
//
// # Components
//
//   - [Sink] receives events (channel, JSON lines, no-op).
//   - [Dispatcher] decouples emitters from the sink with a bounded queue and
//     a single delivery goroutine.
//   - [Event] is the record: type, outcome, reason and correlation IDs.
//
// # Architecture boundaries
//
// The client decides which events to emit; this package only queues and
// delivers them. Token material never enters an Event.
package audit
