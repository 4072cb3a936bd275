// Package relay implements the conversation core: sessions, fan-out,
// and the event engine.
//
// # Overview
//
// The relay package owns everything between the transport and the
// store. A WebSocket handler registers a Session, feeds inbound events
// to the Engine, and pumps the session's outbound channel back to the
// socket. The Engine persists each mutation and hands the resulting
// event to the Broadcaster, which delivers it to every live session.
//
// # Event Flow
//
//	client ->/ws-> Engine.HandleEvent
//	                 |- validate + dedupe
//	                 |- store mutation (create/reaction/read/delete)
//	                 |- Broadcaster.Publish -> every Session
//	                 '- assistant bridge (new_message to the reserved
//	                    identity only)
//
// Persistence always happens before broadcast: an event a client sees
// is an event that survived a restart.
//
// # Sessions
//
// Each Session carries a buffered outbound channel. Delivery is
// best-effort: a session that cannot keep up has events dropped rather
// than stalling the rest of the room. Within one session, delivered
// events keep publish order.
//
// # Assistant
//
// Messages addressed to the configured assistant identity additionally
// trigger a completion call. The reply re-enters the engine as a plain
// new message from the assistant, so it is persisted and fanned out
// like any other. The call runs detached from the originating session;
// a disconnect does not cancel it.
//
// # Key Files
//
//   - events.go: wire envelope and validation
//   - registry.go: session lifecycle and tracking
//   - broadcaster.go: fan-out
//   - engine.go: persist-then-broadcast pipeline and assistant routing
package relay
