package tracker

import (
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/classify"
)

// State is a device's position in the activation state machine.
type State string

// Device states.
const (
	// StateIdle means the device is not currently triggered.
	StateIdle State = "IDLE"

	// StateActive means the device is triggered.
	StateActive State = "ACTIVE"

	// StateActivePendingClear means the device reported clear and a delayed
	// confirmation task is scheduled.
	StateActivePendingClear State = "ACTIVE_PENDING_CLEAR"
)

// deviceState is the per-device record. Owned exclusively by the device's
// actor goroutine; never touched from outside it.
//
// clearGen is a generation counter for the pending-clear task: the counter
// increments on every cancel or schedule, and a firing timer only has effect
// if its generation still matches. This resolves the cancel/fire race so at
// most one of the two takes effect.
type deviceState struct {
	state      State
	lastNotify time.Time

	clearGen   uint64
	clearTimer *time.Timer
}

// message is a unit of work for a device actor.
// Exactly one of raw, stateQuery, or the clearGen default is meaningful.
type message struct {
	// raw is set for inbound sensor events.
	raw *classify.RawPayload

	// stateQuery, when set, asks the actor to report its current state.
	stateQuery chan State

	// clearGen is set (with raw and stateQuery nil) when a pending-clear
	// timer fired.
	clearGen uint64
}
