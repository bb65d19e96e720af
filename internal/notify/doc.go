// Package notify routes alert notifications across outbound channels.
//
// A Request carries ordered message fragments, an explicit channel set, and
// a bucket (named sub-destination within a channel). The Router delivers it
// with per-channel bounded retry and exponential backoff, cross-channel
// fallback from a declarative primary-to-secondary table, and attachment
// routing to the first attachment-capable channel.
//
// Three channels ship with the core:
//
//   - push: chat-push API, text only, per-recipient quotas (low reliability)
//   - webhook: group-chat webhook with per-bucket URLs, attachment-capable
//   - mqtt: wall-panel broadcast over the broker, text only
//
// Delivery is fail-soft. Send returns false when every channel refused; it
// never panics and never raises into the calling flow. A false return means
// no human saw the alert, which callers log but must not treat as fatal.
package notify
