/*
Package tracker is the event-tracking facade of the engagekit SDK.

# Overview

Application code reports three kinds of signals - named events, visitor
identity updates, and screen-view transitions - without dealing with
transport, retries, or visitor-state management. Every tracking call
returns immediately with a task handle; delivery happens asynchronously
on the transmitter owned by the shared app.

# Basic Usage

Set up the SDK once at startup, then track from anywhere:

	cfg, err := config.Load("tracker.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	if _, err := app.Setup(cfg); err != nil {
	    log.Fatal(err)
	}
	defer app.Shutdown()

	tracker.Track("purchase", event.Values{"amount": 500})
	tracker.Identify(event.Values{"email": "a@example.com"})
	tracker.View("product_detail", nil)

Each call returns a *task.Task. Waiting on it is optional:

	t := tracker.Track("signup", nil)
	<-t.Done()
	if t.Err() != nil {
	    log.Printf("delivery failed: %v", t.Err())
	}

# Scene-bound tracking

In multi-window hosts, bind a Tracker to a scene so view events route
overlay dismissal to the right window:

	tr := tracker.NewForScene(myScene)
	tr.View("settings", nil)

Firing a view event is also the SDK's screen-transition signal: the
overlay currently displayed in the tracker's scene is dismissed before the
event is handed to the transmitter, and the transition is recorded for
scene-scoped suppression policy.

# Delivery lifecycle observation

A process-wide delegate observes deliveries. It may be set before the app
is configured; a transmitter constructed later picks it up:

	tracker.SetDelegate(myDelegate)

# Error policy

Tracking calls never fail and never block. If the app has not been set up,
dispatch is a silent no-op and the returned task stays pending. Malformed
input (an empty event name) is a caller bug, not guarded here; delivery
failures surface only through the task's completion state and the
delegate.

# Thread Safety

  - Tracker values are immutable and safe to copy and share
  - Tasks are safe for concurrent inspection; only the transmitter
    writes their completion state
  - The delegate slot and the shared app are safe for concurrent use

# Subpackages

  - event: the immutable event model (named, identify, view)
  - task: the asynchronously-completed tracking task handle
  - app: the host-application singleton (visitor identity, transmitter)
  - transmit: batching, retry, and HTTP delivery
  - spool: durable storage for undelivered batches (memory, SQLite)
  - inapp: overlay presentation and scene-transition handling
  - config: configuration loading (YAML, JSON, environment)
  - errors: delivery error taxonomy and retry policy
  - observability: logging, metrics, and tracing helpers
*/
package tracker
