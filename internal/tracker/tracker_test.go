package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/classify"
	"github.com/hearthwatch/hearthwatch-core/internal/directory"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
	"github.com/hearthwatch/hearthwatch-core/internal/notify"
)

// ─── Mock Dependencies ───────────────────────────────────────────────────────

// mockClassifier maps detection_state straight to a semantic state, with the
// category taken from the device_type hint.
type mockClassifier struct{}

func (mockClassifier) Classify(_ context.Context, raw classify.RawPayload) (*classify.Event, error) {
	if raw.DetectionState == "" {
		return nil, classify.ErrMissingField
	}

	var state classify.SemanticState
	switch raw.DetectionState {
	case "detected":
		state = classify.StateDetected
	case "not_detected", "clear":
		state = classify.StateClear
	case "open":
		state = classify.StateOpen
	case "close":
		state = classify.StateClose
	default:
		return nil, fmt.Errorf("%w: %q", classify.ErrUnclassified, raw.DetectionState)
	}

	mac := directory.NormalizeMAC(raw.DeviceMAC)
	return &classify.Event{
		ID:            "evt-" + mac,
		DeviceID:      mac,
		DeviceName:    "Test " + mac,
		Location:      "test-room",
		Category:      directory.Category(raw.DeviceType),
		SemanticState: state,
		RawDetail:     raw,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// sinkRow is one recorded Append call.
type sinkRow struct {
	table   string
	columns []string
	values  []any
}

// column returns the value stored under a column name, or nil.
func (r sinkRow) column(name string) any {
	for i, c := range r.columns {
		if c == name {
			return r.values[i]
		}
	}
	return nil
}

// mockSink records appended rows.
type mockSink struct {
	mu   sync.Mutex
	rows []sinkRow
	fail bool
}

func (m *mockSink) Append(table string, columns []string, values []any, _ time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, sinkRow{table: table, columns: columns, values: values})
	return !m.fail
}

func (m *mockSink) count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.table == table {
			n++
		}
	}
	return n
}

func (m *mockSink) lastRow(table string) sinkRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].table == table {
			return m.rows[i]
		}
	}
	return sinkRow{}
}

// mockNotifier records delivered requests.
type mockNotifier struct {
	mu       sync.Mutex
	requests []notify.Request
	accept   bool
}

func (m *mockNotifier) Send(_ context.Context, req notify.Request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.accept
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockNotifier) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ""
	}
	return m.requests[len(m.requests)-1].Text()
}

// ─── Test Setup ──────────────────────────────────────────────────────────────

// testPolicy uses a 1 second clear delay so pending-clear tests run quickly.
func testPolicy() config.TrackerConfig {
	return config.TrackerConfig{
		QueueSize: 16,
		Categories: map[string]config.CategoryPolicy{
			"motion":  {Cooldown: 120, ClearDelay: 1},
			"contact": {Cooldown: 120, ClearDelay: 0},
		},
	}
}

func setupTracker(t *testing.T) (*Tracker, *mockSink, *mockNotifier) {
	t.Helper()

	sink := &mockSink{}
	notifier := &mockNotifier{accept: true}

	tr := New(Dependencies{
		Classifier: mockClassifier{},
		Sink:       sink,
		Notifier:   notifier,
		Policy:     testPolicy(),
		Recipient:  "household",
		Channels:   notify.NewChannelSet(notify.ChannelPush),
		Bucket:     "alerts",
	})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		if err := tr.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	return tr, sink, notifier
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func motionEvent(mac, detection string) classify.RawPayload {
	return classify.RawPayload{
		DeviceMAC: mac, DetectionState: detection,
		EventType: "sensor_report", DeviceType: "motion",
	}
}

func contactEvent(mac, detection string) classify.RawPayload {
	return classify.RawPayload{
		DeviceMAC: mac, DetectionState: detection,
		EventType: "sensor_report", DeviceType: "contact",
	}
}

// ─── Tests ───────────────────────────────────────────────────────────────────

func TestTracker_ActivationNotifiesOnce(t *testing.T) {
	tr, sink, notifier := setupTracker(t)

	if !tr.Enqueue(motionEvent("m1:00:00:00:00:01", "detected")) {
		t.Fatal("Enqueue() = false")
	}

	waitFor(t, time.Second, func() bool { return notifier.count() == 1 },
		"no notification after activation")

	if got := tr.DeviceState("m1:00:00:00:00:01"); got != StateActive {
		t.Errorf("DeviceState() = %q, want ACTIVE", got)
	}
	if got := sink.count(classify.EventsTable); got != 1 {
		t.Errorf("persisted events = %d, want 1", got)
	}
	if !strings.Contains(notifier.lastText(), "motion detected") {
		t.Errorf("notification text = %q", notifier.lastText())
	}
}

func TestTracker_PersistedEventCarriesID(t *testing.T) {
	tr, sink, _ := setupTracker(t)
	mac := "m1:00:00:00:00:0b"

	tr.Enqueue(motionEvent(mac, "detected"))
	waitFor(t, time.Second, func() bool { return sink.count(classify.EventsTable) == 1 },
		"event not persisted")

	row := sink.lastRow(classify.EventsTable)
	if got := row.column("event_id"); got != "evt-"+mac {
		t.Errorf("event_id = %v, want classifier-assigned ID", got)
	}
	if got := row.column("device_id"); got != mac {
		t.Errorf("device_id = %v, want %q", got, mac)
	}
}

func TestTracker_CooldownSuppressesButPersists(t *testing.T) {
	tr, sink, notifier := setupTracker(t)
	mac := "d1:00:00:00:00:01"

	// Contact scenario: open notifies, the close and re-open inside the
	// cooldown window are persisted but silent.
	tr.Enqueue(contactEvent(mac, "open"))
	tr.Enqueue(contactEvent(mac, "close"))
	tr.Enqueue(contactEvent(mac, "open"))

	waitFor(t, time.Second, func() bool { return sink.count(classify.EventsTable) == 3 },
		"events not persisted")

	if got := notifier.count(); got != 1 {
		t.Errorf("notifications = %d, want 1 (cooldown suppression)", got)
	}
	if got := tr.DeviceState(mac); got != StateActive {
		t.Errorf("DeviceState() = %q, want ACTIVE", got)
	}
}

func TestTracker_CooldownIsPerDevice(t *testing.T) {
	tr, _, notifier := setupTracker(t)

	tr.Enqueue(contactEvent("d1:00:00:00:00:02", "open"))
	tr.Enqueue(contactEvent("d1:00:00:00:00:03", "open"))

	waitFor(t, time.Second, func() bool { return notifier.count() == 2 },
		"second device suppressed by first device's cooldown")
}

func TestTracker_PendingClearFiresAndNotifies(t *testing.T) {
	tr, _, notifier := setupTracker(t)
	mac := "m1:00:00:00:00:04"

	tr.Enqueue(motionEvent(mac, "detected"))
	waitFor(t, time.Second, func() bool { return notifier.count() == 1 },
		"activation not notified")

	tr.Enqueue(motionEvent(mac, "not_detected"))
	waitFor(t, time.Second, func() bool {
		return tr.DeviceState(mac) == StateActivePendingClear
	}, "device not pending clear")

	// No notification until the delay elapses.
	if got := notifier.count(); got != 1 {
		t.Errorf("notifications = %d, want 1 before clear fires", got)
	}

	waitFor(t, 3*time.Second, func() bool { return notifier.count() == 2 },
		"cleared notification never sent")

	if got := tr.DeviceState(mac); got != StateIdle {
		t.Errorf("DeviceState() = %q, want IDLE after clear", got)
	}
	if !strings.Contains(notifier.lastText(), "motion cleared") {
		t.Errorf("notification text = %q, want cleared message", notifier.lastText())
	}

	// The clear fired exactly once; nothing further arrives.
	time.Sleep(1500 * time.Millisecond)
	if got := notifier.count(); got != 2 {
		t.Errorf("notifications = %d, want exactly 2", got)
	}
}

func TestTracker_ReactivationCancelsPendingClear(t *testing.T) {
	tr, _, notifier := setupTracker(t)
	mac := "m1:00:00:00:00:05"

	tr.Enqueue(motionEvent(mac, "detected"))
	waitFor(t, time.Second, func() bool { return notifier.count() == 1 },
		"activation not notified")

	tr.Enqueue(motionEvent(mac, "not_detected"))
	waitFor(t, time.Second, func() bool {
		return tr.DeviceState(mac) == StateActivePendingClear
	}, "device not pending clear")

	// Re-activation before the delay: cancel the pending task, stay active,
	// no duplicate start notification (cooldown).
	tr.Enqueue(motionEvent(mac, "detected"))
	waitFor(t, time.Second, func() bool {
		return tr.DeviceState(mac) == StateActive
	}, "re-activation did not cancel pending clear")

	// Wait past the original delay: the cancelled task must never fire.
	time.Sleep(1500 * time.Millisecond)
	if got := notifier.count(); got != 1 {
		t.Errorf("notifications = %d, want 1 (cancelled clear must not fire)", got)
	}
	if got := tr.DeviceState(mac); got != StateActive {
		t.Errorf("DeviceState() = %q, want ACTIVE", got)
	}
}

func TestTracker_MotionScenario(t *testing.T) {
	// The full motion sequence: detect, flicker clear, re-detect, then a
	// clear that completes.
	tr, _, notifier := setupTracker(t)
	mac := "m1:00:00:00:00:06"

	tr.Enqueue(motionEvent(mac, "detected"))
	waitFor(t, time.Second, func() bool { return notifier.count() == 1 },
		"t=0 activation not notified")

	tr.Enqueue(motionEvent(mac, "not_detected"))
	waitFor(t, time.Second, func() bool {
		return tr.DeviceState(mac) == StateActivePendingClear
	}, "t=10 clear not pending")

	tr.Enqueue(motionEvent(mac, "detected"))
	waitFor(t, time.Second, func() bool {
		return tr.DeviceState(mac) == StateActive
	}, "t=15 pending clear not cancelled")
	if got := notifier.count(); got != 1 {
		t.Errorf("notifications = %d, want 1 (re-detect inside cooldown)", got)
	}

	tr.Enqueue(motionEvent(mac, "not_detected"))
	waitFor(t, 3*time.Second, func() bool { return notifier.count() == 2 },
		"t=70 cleared notification never arrived")
	if got := tr.DeviceState(mac); got != StateIdle {
		t.Errorf("final DeviceState() = %q, want IDLE", got)
	}
}

func TestTracker_UnclassifiedPersistedRaw(t *testing.T) {
	tr, sink, notifier := setupTracker(t)

	tr.Enqueue(classify.RawPayload{
		DeviceMAC: "m1:00:00:00:00:07", DetectionState: "sideways",
		EventType: "sensor_report", DeviceType: "motion",
	})

	waitFor(t, time.Second, func() bool { return sink.count("sensor_events_raw") == 1 },
		"unclassified event not persisted raw")

	if got := notifier.count(); got != 0 {
		t.Errorf("notifications = %d, want 0 for unclassified event", got)
	}
	if got := tr.DeviceState("m1:00:00:00:00:07"); got != StateIdle {
		t.Errorf("DeviceState() = %q, want IDLE", got)
	}
}

func TestTracker_SinkFailureDoesNotBlockNotification(t *testing.T) {
	tr, sink, notifier := setupTracker(t)
	sink.fail = true

	tr.Enqueue(motionEvent("m1:00:00:00:00:08", "detected"))

	waitFor(t, time.Second, func() bool { return notifier.count() == 1 },
		"sink failure blocked the notification path")
}

func TestTracker_UndeliveredNotificationNotRequeued(t *testing.T) {
	tr, _, notifier := setupTracker(t)
	notifier.accept = false
	mac := "d1:00:00:00:00:09"

	tr.Enqueue(contactEvent(mac, "open"))
	waitFor(t, time.Second, func() bool { return notifier.count() == 1 },
		"no delivery attempt")

	// At-most-once: the failed attempt is not retried by the tracker, and
	// lastNotify is not updated, so the next activation attempts again.
	tr.Enqueue(contactEvent(mac, "close"))
	waitFor(t, time.Second, func() bool { return notifier.count() == 2 },
		"failed send wrongly started the cooldown window")
}

func TestTracker_EnqueueAfterClose(t *testing.T) {
	sink := &mockSink{}
	notifier := &mockNotifier{accept: true}
	tr := New(Dependencies{
		Classifier: mockClassifier{},
		Sink:       sink,
		Notifier:   notifier,
		Policy:     testPolicy(),
		Channels:   notify.NewChannelSet(notify.ChannelPush),
		Bucket:     "alerts",
	})
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if tr.Enqueue(motionEvent("m1:00:00:00:00:0a", "detected")) {
		t.Error("Enqueue() = true after Close, want false")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		state   classify.SemanticState
		reading float64
		want    string
	}{
		{state: classify.StateDetected, want: "motion detected"},
		{state: classify.StateOpen, want: "opened"},
		{state: classify.StateTimeoutNotClosed, want: "left open"},
		{state: classify.StateThresholdUp, reading: 210.5, want: "power above threshold (210.5 W)"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			got := describe(&classify.Event{
				DeviceName: "Front Door", Location: "entrance",
				SemanticState: tt.state, Reading: tt.reading,
			})
			if !strings.Contains(got, tt.want) {
				t.Errorf("describe() = %q, want substring %q", got, tt.want)
			}
			if !strings.Contains(got, "Front Door (entrance)") {
				t.Errorf("describe() = %q, missing subject", got)
			}
		})
	}
}
