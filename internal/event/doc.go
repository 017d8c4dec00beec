/*
Package event provides the project-wide pub/sub event bus and the
bounded replay buffer that backs the global SSE stream.

# Architecture

The package is built on top of watermill's gochannel for infrastructure
while keeping direct-call semantics, which preserve the DomainEvent's
concrete type across the call.

# Event Types

Domain events are defined in pkg/types (TaskCreated, TaskStatusChanged,
SessionStarted, SessionEnded, PhaseCompleted, PhaseContinuing,
AgentMessageEvent, ToolExecution, Workspace*, Project*, Roadmap*, Error).
Every event implements types.DomainEvent and carries the affected task
id where applicable, used for SSE filtering.

# Basic Usage

	bus := event.New()
	defer bus.Close()

	unsubscribe := bus.Subscribe(func(env types.EventEnvelope) {
		log.Info("event", "name", env.Event.EventName())
	})
	defer unsubscribe()

	bus.Publish(types.TaskCreated{TaskID: task.ID, Title: task.Title})

# Replay

Every published envelope is appended to a bounded ring buffer
(DefaultEventBufferSize envelopes). EventsAfter(id) supports resuming an
SSE client that sent a Last-Event-ID; an id that has aged out of the
buffer yields an empty slice and the client falls back to the live tail.

# Subscriber Safety Guidelines

Subscribers passed to Publish run in their own goroutine; subscribers
passed via PublishSync run in the publisher's goroutine and MUST
complete quickly and never call Publish/PublishSync re-entrantly.
*/
package event
