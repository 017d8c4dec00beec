// Package activity owns the lifecycle of a running session's activity
// feed: the per-session Store (bounded history + live broadcast), the
// Registry that maps session id to store, and the parsing functions
// that turn backend SSE parts and review response text into the
// typed values the rest of the engine consumes.
//
// # Store
//
//	reg := activity.NewRegistry(store.Activities())
//	s := reg.GetOrCreate(sessionID)
//	ch, unsubscribe := s.Subscribe()
//	defer unsubscribe()
//	s.Push(types.NewAgentMessage(time.Now(), "msg-1", "hello", true))
//
// History is capped at HistoryBytesLimit total bytes with FIFO eviction
// from the head; live subscribers each get a BroadcastCapacity-buffered
// channel and silently drop messages if they fall behind — the
// retained history remains canonical and is what SSE resume
// (Last-Event-ID) replays from.
//
// # Parsing
//
// ParseSSEPart converts one backend Part into the corresponding
// ActivityMsg variant. ClassifyReview applies the review-text rules
// (APPROVED / CHANGES_REQUESTED / REJECTED) to a reviewer's final
// response. ExtractJSON tolerantly locates a findings.json-shaped
// object inside free-form text.
package activity
