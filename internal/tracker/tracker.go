package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/classify"
	"github.com/hearthwatch/hearthwatch-core/internal/directory"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
	"github.com/hearthwatch/hearthwatch-core/internal/notify"
)

// defaultQueueSize is the per-device queue depth when not configured.
const defaultQueueSize = 16

// rawEventsTable is the sink table for events that failed classification.
const rawEventsTable = "sensor_events_raw"

// Classifier maps raw payloads to classified events.
// Satisfied by *classify.Classifier.
type Classifier interface {
	Classify(ctx context.Context, raw classify.RawPayload) (*classify.Event, error)
}

// EventSink durably records events. Satisfied by *influxdb.Client.
type EventSink interface {
	Append(table string, columns []string, values []any, ts time.Time) bool
}

// Notifier delivers alert notifications. Satisfied by *notify.Router.
type Notifier interface {
	Send(ctx context.Context, req notify.Request) bool
}

// Logger is the minimal logging interface the tracker needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dependencies wires the tracker's collaborators.
type Dependencies struct {
	Classifier Classifier
	Sink       EventSink // may be nil when the sink is disabled
	Notifier   Notifier

	// Policy holds the per-category cooldown/clear-delay/threshold settings.
	Policy config.TrackerConfig

	// Recipient, Channels and Bucket shape the notification requests the
	// tracker emits. Channels is derived from the enabled channel config.
	Recipient string
	Channels  notify.ChannelSet
	Bucket    string
}

// Tracker owns the per-device state machines.
//
// Each device gets its own actor goroutine with a FIFO queue, created lazily
// on the first event. Events for one device are processed strictly in
// arrival order; events for different devices interleave freely. The
// pending-clear timer re-enqueues into the same queue, so cancellation and
// firing are serialised with event handling and at most one of the two has
// effect.
//
// State is process-scoped: a restart resets every device to empty, which is
// acceptable because sensors re-report on their next physical event.
type Tracker struct {
	deps   Dependencies
	logger Logger

	actors  map[string]*actor
	actorMu sync.Mutex

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// actor is one device's queue and goroutine.
type actor struct {
	deviceID string
	queue    chan message
	state    deviceState

	// pendingEvent is the deactivation event a scheduled clear will confirm.
	pendingEvent *classify.Event
}

// New creates a Tracker. Call Start before enqueuing events.
func New(deps Dependencies) *Tracker {
	return &Tracker{
		deps:   deps,
		logger: noopLogger{},
		actors: make(map[string]*actor),
	}
}

// SetLogger sets the logger for the tracker.
func (t *Tracker) SetLogger(logger Logger) {
	t.logger = logger
}

// Start makes the tracker ready to accept events.
// The given context bounds all actor goroutines and scheduled clears.
func (t *Tracker) Start(ctx context.Context) error {
	if t.deps.Classifier == nil || t.deps.Notifier == nil {
		return errors.New("tracker: classifier and notifier are required")
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.started = true
	return nil
}

// Close stops all actors and waits for in-flight event handling to finish.
// Pending clear timers are abandoned; their state is process-scoped anyway.
func (t *Tracker) Close() error {
	if !t.started {
		return nil
	}
	t.cancel()
	t.wg.Wait()
	return nil
}

// Enqueue hands a raw sensor event to its device's actor.
//
// Non-blocking: if the device's queue is full the event is dropped with a
// warning. The webhook boundary has already answered 200 by the time this
// matters, so backpressure here protects the process, not the sender.
//
// Returns:
//   - bool: false if the tracker is stopped or the queue is full
func (t *Tracker) Enqueue(raw classify.RawPayload) bool {
	if !t.started || t.ctx.Err() != nil {
		return false
	}

	deviceID := directory.NormalizeMAC(raw.DeviceMAC)
	a := t.actorFor(deviceID)

	select {
	case a.queue <- message{raw: &raw}:
		return true
	default:
		t.logger.Warn("device queue full, event dropped", "device_id", deviceID)
		return false
	}
}

// DeviceState reports a device's current state. Intended for tests and the
// health surface; returns StateIdle for devices never seen.
func (t *Tracker) DeviceState(deviceID string) State {
	if !t.started {
		return StateIdle
	}

	t.actorMu.Lock()
	a, ok := t.actors[directory.NormalizeMAC(deviceID)]
	t.actorMu.Unlock()
	if !ok {
		return StateIdle
	}

	// Round-trip through the actor's queue so the answer reflects every
	// event enqueued before the call.
	reply := make(chan State, 1)
	select {
	case a.queue <- message{stateQuery: reply}:
		select {
		case s := <-reply:
			return s
		case <-t.ctx.Done():
			return StateIdle
		}
	case <-t.ctx.Done():
		return StateIdle
	}
}

// actorFor returns the device's actor, creating it on first use.
func (t *Tracker) actorFor(deviceID string) *actor {
	t.actorMu.Lock()
	defer t.actorMu.Unlock()

	if a, ok := t.actors[deviceID]; ok {
		return a
	}

	queueSize := t.deps.Policy.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	a := &actor{
		deviceID: deviceID,
		queue:    make(chan message, queueSize),
		state:    deviceState{state: StateIdle},
	}
	t.actors[deviceID] = a

	t.wg.Add(1)
	go t.runActor(a)

	return a
}

// runActor is a device's event loop. All mutation of the device's state
// happens here, one message at a time, in arrival order.
func (t *Tracker) runActor(a *actor) {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			if a.state.clearTimer != nil {
				a.state.clearTimer.Stop()
			}
			return
		case msg := <-a.queue:
			switch {
			case msg.stateQuery != nil:
				msg.stateQuery <- a.state.state
			case msg.raw != nil:
				t.handleRaw(a, *msg.raw)
			default:
				t.handleClearFired(a, msg.clearGen)
			}
		}
	}
}

// handleRaw classifies one raw event and applies the state machine.
// Failures here are local to the device: logged, never propagated.
func (t *Tracker) handleRaw(a *actor, raw classify.RawPayload) {
	event, err := t.deps.Classifier.Classify(t.ctx, raw)
	if err != nil {
		if errors.Is(err, classify.ErrUnclassified) {
			t.persistRaw(a.deviceID, raw)
			t.logger.Debug("event unclassified, persisted raw",
				"device_id", a.deviceID, "error", err)
			return
		}
		t.logger.Error("classification failed", "device_id", a.deviceID, "error", err)
		return
	}

	// Persistence and notification are independent side effects; a sink
	// failure must not block the notification path.
	t.persistEvent(event)

	switch {
	case event.SemanticState.IsActivation():
		t.handleActivation(a, event)
	case event.SemanticState.IsDeactivation():
		t.handleDeactivation(a, event)
	case event.SemanticState == classify.StateTimeoutNotClosed:
		// Odd contact state: notification-worthy but no state change.
		t.notifyImmediate(a, event)
	default:
		// Plain readings update nothing.
		t.logger.Debug("reading persisted", "device_id", a.deviceID,
			"reading", event.Reading)
	}
}

// handleActivation processes detected/open/threshold-up events.
func (t *Tracker) handleActivation(a *actor, event *classify.Event) {
	switch a.state.state {
	case StateActivePendingClear:
		// Re-activation before the clear confirmed: cancel the pending task,
		// stay active, no duplicate start notification.
		t.cancelPendingClear(a)
		a.state.state = StateActive
		t.logger.Debug("pending clear cancelled by re-activation",
			"device_id", a.deviceID)
	case StateIdle:
		a.state.state = StateActive
		t.notifyImmediate(a, event)
	case StateActive:
		// Already active; sensors re-report, nothing new to say.
	}
}

// handleDeactivation processes clear/close/threshold-down events.
func (t *Tracker) handleDeactivation(a *actor, event *classify.Event) {
	if a.state.state == StateIdle {
		return
	}

	policy := t.deps.Policy.PolicyFor(string(event.Category))
	delay := policy.ClearDelayDuration()

	if delay <= 0 {
		// Contact-style devices confirm instantly, no debounce.
		t.cancelPendingClear(a)
		a.state.state = StateIdle
		t.notifyImmediate(a, event)
		return
	}

	// Replace any existing pending clear with a fresh one.
	t.cancelPendingClear(a)
	a.state.state = StateActivePendingClear
	t.schedulePendingClear(a, event, delay)
}

// schedulePendingClear arms the delayed clear confirmation.
//
// The timer callback re-enqueues into the actor's own queue instead of
// mutating state directly, which keeps every state change on the actor
// goroutine and serialises firing against cancellation.
func (t *Tracker) schedulePendingClear(a *actor, event *classify.Event, delay time.Duration) {
	a.state.clearGen++
	gen := a.state.clearGen
	ev := *event

	a.pendingEvent = &ev
	a.state.clearTimer = time.AfterFunc(delay, func() {
		select {
		case a.queue <- message{clearGen: gen}:
		case <-t.ctx.Done():
		}
	})

	t.logger.Debug("pending clear scheduled",
		"device_id", a.deviceID, "delay", delay)
}

// cancelPendingClear stops the armed timer and invalidates its generation.
// Idempotent: cancelling an already-fired or never-armed clear is a no-op.
func (t *Tracker) cancelPendingClear(a *actor) {
	a.state.clearGen++
	if a.state.clearTimer != nil {
		a.state.clearTimer.Stop()
		a.state.clearTimer = nil
	}
	a.pendingEvent = nil
}

// handleClearFired completes a pending clear whose delay elapsed.
// Stale generations (cancelled or superseded) are dropped silently.
func (t *Tracker) handleClearFired(a *actor, gen uint64) {
	if a.state.state != StateActivePendingClear || gen != a.state.clearGen {
		return
	}

	event := a.pendingEvent
	a.state.state = StateIdle
	a.state.clearTimer = nil
	a.pendingEvent = nil

	if event == nil {
		return
	}

	// The delayed clear is a confirmed state change, not an immediate
	// notification, so the cooldown rule does not apply.
	if t.sendNotification(event) {
		a.state.lastNotify = time.Now().UTC()
	}
}

// notifyImmediate sends a notification subject to the per-device cooldown.
// Suppressed sends still leave the event persisted.
func (t *Tracker) notifyImmediate(a *actor, event *classify.Event) {
	policy := t.deps.Policy.PolicyFor(string(event.Category))
	cooldown := policy.CooldownDuration()

	if !a.state.lastNotify.IsZero() && time.Since(a.state.lastNotify) < cooldown {
		t.logger.Debug("notification suppressed by cooldown",
			"device_id", a.deviceID,
			"since_last", time.Since(a.state.lastNotify))
		return
	}

	if t.sendNotification(event) {
		a.state.lastNotify = time.Now().UTC()
	}
}

// sendNotification builds and delivers the human-readable alert.
// A false result means no channel accepted; logged, never re-queued.
func (t *Tracker) sendNotification(event *classify.Event) bool {
	req := notify.Request{
		Recipient: t.deps.Recipient,
		Fragments: []notify.Fragment{notify.TextFragment(describe(event))},
		Channels:  t.deps.Channels,
		Bucket:    t.deps.Bucket,
	}

	ok := t.deps.Notifier.Send(t.ctx, req)
	if !ok {
		t.logger.Error("notification undelivered",
			"device_id", event.DeviceID, "state", event.SemanticState)
	}
	return ok
}

// describe renders a classified event as alert text.
func describe(event *classify.Event) string {
	subject := fmt.Sprintf("%s (%s)", event.DeviceName, event.Location)

	switch event.SemanticState {
	case classify.StateDetected:
		return subject + ": motion detected"
	case classify.StateClear:
		return subject + ": motion cleared"
	case classify.StateOpen:
		return subject + ": opened"
	case classify.StateClose:
		return subject + ": closed"
	case classify.StateTimeoutNotClosed:
		return subject + ": left open"
	case classify.StateThresholdUp:
		return fmt.Sprintf("%s: power above threshold (%.1f W)", subject, event.Reading)
	case classify.StateThresholdDown:
		return fmt.Sprintf("%s: power back below threshold (%.1f W)", subject, event.Reading)
	default:
		return fmt.Sprintf("%s: %s", subject, event.SemanticState)
	}
}

// persistEvent appends a classified event to the sink.
// Sink failure is logged and otherwise ignored (fail-soft).
func (t *Tracker) persistEvent(event *classify.Event) {
	if t.deps.Sink == nil {
		return
	}

	ok := t.deps.Sink.Append(classify.EventsTable,
		[]string{"event_id", "device_id", "device_name", "location", "category",
			"semantic_state", classify.ReadingField, "event_type"},
		[]any{event.ID, event.DeviceID, event.DeviceName, event.Location,
			string(event.Category), string(event.SemanticState),
			event.Reading, event.RawDetail.EventType},
		event.Timestamp)
	if !ok {
		t.logger.Warn("event persistence failed", "device_id", event.DeviceID)
	}
}

// persistRaw appends an unclassifiable payload as an uncategorised record.
func (t *Tracker) persistRaw(deviceID string, raw classify.RawPayload) {
	if t.deps.Sink == nil {
		return
	}

	ok := t.deps.Sink.Append(rawEventsTable,
		[]string{"device_id", "detection_state", "event_type", "device_type"},
		[]any{deviceID, raw.DetectionState, raw.EventType, raw.DeviceType},
		time.Now().UTC())
	if !ok {
		t.logger.Warn("raw event persistence failed", "device_id", deviceID)
	}
}
