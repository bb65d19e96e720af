// Package classify maps raw sensor webhook payloads to semantic events.
//
// The classifier resolves device metadata through the directory, then applies
// per-category field mapping: motion sensors produce detected/clear, contact
// sensors open/close/timeout_not_closed, and plugs/meters a numeric reading
// with a derived threshold-crossing marker computed against the previous
// recorded reading.
//
// Classification failures are soft by design. An unparseable payload returns
// ErrUnclassified; the caller persists the raw record and skips the
// notification path, but never rejects the webhook. Unregistered devices get
// a synthesised placeholder identity rather than an error.
package classify
