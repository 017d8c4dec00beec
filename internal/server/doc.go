// Package server provides the HTTP API the orchestrator exposes to its
// callers (a CLI, a TUI, a web dashboard): the four endpoints that let
// a caller drive task execution and observe it in real time.
//
// # Endpoints
//
//   - POST /api/tasks/{id}/execute    — dispatch the phase the task's current status maps to.
//   - POST /api/tasks/{id}/transition — an explicit status change through an approval gate.
//   - GET  /api/events                — global SSE stream of DomainEvents, replayable via Last-Event-ID.
//   - GET  /api/sessions/{id}/activity — per-session SSE stream of ActivityMsgs, replayable via Last-Event-ID.
//
// Every other surface the OpenCode backend itself exposes (LSP status,
// formatter, client-tool registration, TUI remote control) belongs to
// that backend's own HTTP server, not this one, and is not reimplemented
// here.
package server
