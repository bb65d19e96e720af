// Package tracker owns the per-device activation state machines.
//
// Each device moves through IDLE, ACTIVE and ACTIVE_PENDING_CLEAR. An
// activation event notifies immediately (subject to a per-category cooldown)
// and marks the device active. A deactivation event does not notify
// immediately: it schedules a delayed clear confirmation, which a new
// activation can cancel. Contact sensors skip the delay entirely. Every
// classified event is persisted whether or not it notified.
//
// # Concurrency
//
// One actor goroutine per device, created lazily, consuming a FIFO queue.
// Events for a single device are strictly ordered; different devices
// interleave freely. The pending-clear timer posts back into the same queue
// under a generation counter, so cancellation and firing serialise with
// event handling and at most one of the two can take effect.
//
// State lives only in memory. A restart resets every device to IDLE, which
// is fine: sensors re-report on their next physical event.
package tracker
